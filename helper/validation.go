package helper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var valueValidator = validator.New()

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// ValidateStructValues runs the `validate` tag rules found on cfg.
// Each failing field is reported using its errorTxt tag, falling back to the field name.
func ValidateStructValues(cfg interface{}) error {
	err := valueValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%v (rule %v=%v, got %v)", errorTxtForField(cfg, fe), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid values for %v", strings.Join(msgs, "; "))
}

// ValidateStruct checks mandatory fields are populated before checking value rules.
func ValidateStruct(cfg interface{}) error {
	if err := ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	return ValidateStructValues(cfg)
}

// errorTxtForField walks the namespace of fe (Struct.Nested.Field) to find the errorTxt tag.
func errorTxtForField(cfg interface{}, fe validator.FieldError) string {
	typ := reflect.TypeOf(cfg)
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) < 2 {
		return fe.Field()
	}
	for idx, name := range parts[1:] {
		for typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ.Kind() != reflect.Struct {
			return fe.Field()
		}
		f, ok := typ.FieldByName(name)
		if !ok {
			return fe.Field()
		}
		if idx == len(parts)-2 { // if this is the leaf field...
			if txt := f.Tag.Get("errorTxt"); txt != "" {
				return txt
			}
			return fe.Field()
		}
		typ = f.Type
	}
	return fe.Field()
}

// GetStructErrorTxt4UnsetFields will reflect over interface i and build a slice containing error text strings for any
// struct fields that are unset i.e. are the zero value for the given field type.
// The error text strings are fetched from the errorTxt tags values found in the supplied interface (struct)
// where tag mandatory:"yes" is set.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if reflect.TypeOf(i).Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the value/struct...
		f := val.Field(idx)
		firstChar := typ.Field(idx).Name[0:1]
		if firstChar == strings.ToUpper(firstChar) { // if the field is exported...
			switch f.Type().Kind() {
			case reflect.Struct: // if we are looking at a nested struct and need to go down another level...
				GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
			case reflect.Map:
				for _, v := range f.MapKeys() { // for each map key...
					mapVal := f.MapIndex(v)
					if mapVal.Type().Kind() == reflect.Struct && mapVal != reflect.Zero(mapVal.Type()) { // if the map value is a struct and it's not the zero Value of that type...
						GetStructErrorTxt4UnsetFields(mapVal.Interface(), errTags) // descend deeper.
					}
				}
			case reflect.Slice, reflect.Ptr, reflect.Interface, reflect.Func:
			default: // extract tags from this struct field...
				if f.Interface() == reflect.Zero(f.Type()).Interface() &&
					typ.Field(idx).Tag.Get("mandatory") == "yes" { // if the field is its zero value and it is mandatory...
					*errTags = append(*errTags, typ.Field(idx).Tag.Get("errorTxt"))
				}
			}
		}
	}
}
