package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"apk-catalog/catalog"

	"github.com/go-playground/validator/v10"
)

// Form is the text part of an upload, exactly as submitted.
type Form struct {
	Name        string   `form:"name" validate:"required,min=3"`
	Description string   `form:"description" validate:"required,min=10"`
	Version     string   `form:"version" validate:"required"`
	Category    string   `form:"category" validate:"required,category"`
	Size        string   `form:"size" validate:"required"`
	Features    []string `form:"features" validate:"dive,feature"`
}

// SplitFeatures turns the comma-joined features field into a list. Blank
// items are dropped.
func SplitFeatures(raw string) []string {
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ValidationError lists per-field problems with a submission.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

// Add records a problem for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Metadata is a Form after successful validation.
type Metadata struct {
	Name        string
	Description string
	Version     string
	Category    catalog.Category
	Size        string
	Features    []catalog.Feature
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		return fld.Name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := catalog.ParseCategory(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("feature", func(fl validator.FieldLevel) bool {
		_, err := catalog.ParseFeature(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks f and converts it to typed Metadata. Text fields are
// trimmed before checking.
func Validate(f Form) (Metadata, *ValidationError) {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Version = strings.TrimSpace(f.Version)
	f.Category = strings.TrimSpace(f.Category)
	f.Size = strings.TrimSpace(f.Size)

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			ve := &ValidationError{Message: "Invalid APK data"}
			ve.Add("form", err.Error())
			return Metadata{}, ve
		}
		ve := &ValidationError{Message: "Invalid APK data"}
		for _, fe := range verrs {
			ve.Add(fieldKey(fe), describe(fe))
		}
		return Metadata{}, ve
	}

	md := Metadata{
		Name:        f.Name,
		Description: f.Description,
		Version:     f.Version,
		Size:        f.Size,
		Category:    catalog.Category(f.Category),
	}
	md.Features = make([]catalog.Feature, 0, len(f.Features))
	for _, raw := range f.Features {
		md.Features = append(md.Features, catalog.Feature(raw))
	}
	return md, nil
}

func fieldKey(fe validator.FieldError) string {
	// Dive errors carry the index, e.g. "features[1]".
	if i := strings.IndexByte(fe.Field(), '['); i > 0 {
		return fe.Field()[:i]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "category":
		return fmt.Sprintf("unknown category %q", fe.Value())
	case "feature":
		return fmt.Sprintf("unknown feature %q", fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
