package filters

import (
	"regexp"
	"strings"
)

type FilterType string

const (
	FilterTypeContains FilterType = "contains"
	FilterTypeRegex    FilterType = "regex"
	FilterTypeExact    FilterType = "exact"
	FilterTypePrefix   FilterType = "prefix"
)

type Filter struct {
	Name          string
	Type          FilterType
	Pattern       string
	CaseSensitive bool
	regex         *regexp.Regexp
}

func NewFilter(name string, filterType FilterType, pattern string, caseSensitive bool) (*Filter, error) {
	f := &Filter{
		Name:          name,
		Type:          filterType,
		Pattern:       pattern,
		CaseSensitive: caseSensitive,
	}

	if filterType == FilterTypeRegex {
		flags := ""
		if !caseSensitive {
			flags = "(?i)"
		}
		regex, err := regexp.Compile(flags + pattern)
		if err != nil {
			return nil, err
		}
		f.regex = regex
	}

	return f, nil
}

func (f *Filter) Matches(content string) bool {
	switch f.Type {
	case FilterTypeContains:
		if f.CaseSensitive {
			return strings.Contains(content, f.Pattern)
		}
		return strings.Contains(strings.ToLower(content), strings.ToLower(f.Pattern))

	case FilterTypeRegex:
		return f.regex.MatchString(content)

	case FilterTypeExact:
		if f.CaseSensitive {
			return content == f.Pattern
		}
		return strings.EqualFold(content, f.Pattern)

	case FilterTypePrefix:
		if f.CaseSensitive {
			return strings.HasPrefix(content, f.Pattern)
		}
		return strings.HasPrefix(strings.ToLower(content), strings.ToLower(f.Pattern))

	default:
		return false
	}
}
