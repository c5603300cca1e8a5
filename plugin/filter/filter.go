// Package filter evaluates CEL expressions against photo attributes,
// used to narrow list endpoints, e.g. `has_people && "beach" in tags`.
package filter

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// PhotoFilterCELAttributes are the variables available in photo filters.
var PhotoFilterCELAttributes = []cel.EnvOption{
	cel.Variable("caption", cel.StringType),
	cel.Variable("tags", cel.ListType(cel.StringType)),
	cel.Variable("colors", cel.ListType(cel.StringType)),
	cel.Variable("content_type", cel.StringType),
	cel.Variable("domain_tags", cel.ListType(cel.StringType)),
	cel.Variable("vibe_tags", cel.ListType(cel.StringType)),
	cel.Variable("has_people", cel.BoolType),
	cel.Variable("people_count", cel.IntType),
	cel.Variable("is_screenshot", cel.BoolType),
}

// PhotoFilter is a compiled filter expression.
type PhotoFilter struct {
	program cel.Program
}

// CompilePhotoFilter parses and checks a filter expression. Invalid
// expressions are reported back so callers can reject the request.
func CompilePhotoFilter(expression string) (*PhotoFilter, error) {
	env, err := cel.NewEnv(PhotoFilterCELAttributes...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter environment")
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expression)
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.Errorf("filter %q must evaluate to a boolean", expression)
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &PhotoFilter{program: program}, nil
}

// Attributes holds one photo's filterable fields.
type Attributes struct {
	Caption      string
	Tags         []string
	Colors       []string
	ContentType  string
	DomainTags   []string
	VibeTags     []string
	HasPeople    bool
	PeopleCount  int32
	IsScreenshot bool
}

// Match evaluates the filter against a photo's attributes.
func (f *PhotoFilter) Match(attrs *Attributes) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"caption":       attrs.Caption,
		"tags":          emptyIfNil(attrs.Tags),
		"colors":        emptyIfNil(attrs.Colors),
		"content_type":  attrs.ContentType,
		"domain_tags":   emptyIfNil(attrs.DomainTags),
		"vibe_tags":     emptyIfNil(attrs.VibeTags),
		"has_people":    attrs.HasPeople,
		"people_count":  int64(attrs.PeopleCount),
		"is_screenshot": attrs.IsScreenshot,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to evaluate filter")
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("filter did not evaluate to a boolean")
	}
	return matched, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
