// Package validation checks user payloads before anything reaches the
// store.
//
// Each operation has its own schema. CreateSchema is strict about types:
// name and email must be strings, age must be a number, city and house must
// be strings. UpdateSchema only asks that every field be truthy. The two are
// kept different on purpose; clients rely on both behaviours.
//
// A schema returns a Result naming the first rule that failed, or an OK
// Result.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/users-api/internal/types"
)

// Rule identifies which check rejected a payload.
type Rule string

const (
	RuleName           Rule = "name"
	RuleEmail          Rule = "email"
	RuleAge            Rule = "age"
	RuleAddress        Rule = "address"
	RuleAddressFormat  Rule = "address_format"
	RuleRequiredFields Rule = "required_fields"
)

// Messages sent back to clients, one per rule.
var messages = map[Rule]string{
	RuleName:           "Invalid or missing name. Name must be a string.",
	RuleEmail:          "Invalid or missing email. Email must be a string.",
	RuleAge:            "Invalid or missing age. Age must be a number.",
	RuleAddress:        `Invalid or missing address. Address must include "city" and "house", both as strings.`,
	RuleAddressFormat:  `Invalid address format. Both "city" and "house" must be strings.`,
	RuleRequiredFields: "Invalid or missing fields in the request.",
}

// Result is the outcome of a schema check. The zero value means the payload
// passed.
type Result struct {
	Rule    Rule
	Message string
}

// OK reports whether every rule passed.
func (r Result) OK() bool { return r.Rule == "" }

func fail(rule Rule) Result {
	return Result{Rule: rule, Message: messages[rule]}
}

// ErrEmptyBody is returned by DecodePayload when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Payload is a user request body as the client sent it. Fields stay untyped
// so the schemas can tell a missing value from a wrongly typed one.
// Numbers arrive as json.Number.
type Payload struct {
	Name    any `json:"name"`
	Email   any `json:"email"`
	Age     any `json:"age"`
	Address any `json:"address"`
}

// DecodePayload reads one JSON object from r.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Payload{}, ErrEmptyBody
		}
		return Payload{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return p, nil
}

// User converts the payload into the typed row. Scalars that are not
// strings are written in their text form; age must be numeric.
func (p Payload) User() (types.User, error) {
	age, ok := coerceAge(p.Age)
	if !ok {
		return types.User{}, fmt.Errorf("age %v is not a number", p.Age)
	}
	addr, _ := p.Address.(map[string]any)
	return types.User{
		Name:  text(p.Name),
		Email: text(p.Email),
		Age:   age,
		Address: types.Address{
			City:  text(addr["city"]),
			House: text(addr["house"]),
		},
	}, nil
}

// Schema validates a payload for one operation.
type Schema interface {
	Validate(p Payload) Result
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateSchema: rules are checked in order and the first failure wins.
// ─────────────────────────────────────────────────────────────────────────────

// CreateSchema holds the POST /users rules.
type CreateSchema struct {
	v *validator.Validate
}

// NewCreateSchema returns a CreateSchema with its own validator instance.
func NewCreateSchema() *CreateSchema {
	return &CreateSchema{v: newValidate()}
}

// Validate returns the first broken rule among name, email, age, address
// and address format, or an OK Result.
func (s *CreateSchema) Validate(p Payload) Result {
	if name, ok := p.Name.(string); !ok || s.v.Var(name, "required") != nil {
		return fail(RuleName)
	}
	if email, ok := p.Email.(string); !ok || s.v.Var(email, "required") != nil {
		return fail(RuleEmail)
	}
	if _, ok := coerceAge(p.Age); !ok {
		return fail(RuleAge)
	}

	addr, ok := p.Address.(map[string]any)
	if !ok || s.v.Var(addr["city"], "truthy") != nil || s.v.Var(addr["house"], "truthy") != nil {
		return fail(RuleAddress)
	}
	_, cityOK := addr["city"].(string)
	_, houseOK := addr["house"].(string)
	if !cityOK || !houseOK {
		return fail(RuleAddressFormat)
	}
	return Result{}
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateSchema: name, email, age, address, address.city and address.house
// must all be truthy. No type checks.
// ─────────────────────────────────────────────────────────────────────────────

// UpdateSchema holds the PUT /users/{id} rules.
type UpdateSchema struct {
	v *validator.Validate
}

// NewUpdateSchema returns an UpdateSchema with its own validator instance.
func NewUpdateSchema() *UpdateSchema {
	return &UpdateSchema{v: newValidate()}
}

// Validate fails with RuleRequiredFields when any field is falsy.
func (s *UpdateSchema) Validate(p Payload) Result {
	var city, house any
	if addr, ok := p.Address.(map[string]any); ok {
		city, house = addr["city"], addr["house"]
	}
	for _, field := range []any{p.Name, p.Email, p.Age, p.Address, city, house} {
		if s.v.Var(field, "truthy") != nil {
			return fail(RuleRequiredFields)
		}
	}
	return Result{}
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("truthy", truthy); err != nil {
		panic(err)
	}
	return v
}

var numberType = reflect.TypeOf(json.Number(""))

// truthy follows JavaScript truthiness for decoded JSON values: empty
// strings, zero, false and null are falsy; every object and array is truthy.
// Absent values never reach this function; the validator reports them as
// failures itself.
func truthy(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		if field.Type() == numberType {
			f, err := strconv.ParseFloat(field.String(), 64)
			return err == nil && f != 0 && !math.IsNaN(f)
		}
		return field.Len() > 0
	case reflect.Bool:
		return field.Bool()
	case reflect.Float32, reflect.Float64:
		f := field.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int() != 0
	case reflect.Map, reflect.Slice:
		return !field.IsNil()
	default:
		return !field.IsZero()
	}
}

// coerceAge accepts a JSON number or a numeric string. Fractions are
// rounded half away from zero, as the INT column does on insert; the
// result must fit that column.
func coerceAge(v any) (int, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Round(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
