package core

import (
	"sort"
	"strings"
)

// SourceDict is the key/value tag set describing an address. Its text
// form is "key1:value1,key2:value2", so neither keys nor values may
// contain the ':' or ',' separators.
type SourceDict map[string]string

// Validate checks every key and value against the separator restrictions.
func (d SourceDict) Validate() error {
	for k, v := range d {
		if k == "" {
			return &ValidationError{Message: "must not be empty", Field: "tag_name", Value: k}
		}
		if strings.ContainsAny(k, ":,") {
			return &ValidationError{Message: "must not contain ':' or ','", Field: "tag_name", Value: k}
		}
		if strings.ContainsAny(v, ":,") {
			return &ValidationError{Message: "must not contain ':' or ','", Field: "tag_value", Value: v}
		}
	}
	return nil
}

// String renders the dictionary in its canonical text form with keys in
// sorted order.
func (d SourceDict) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(d[k])
	}
	return b.String()
}

// ParseSourceDict parses the canonical "k1:v1,k2:v2" text form.
func ParseSourceDict(s string) (SourceDict, error) {
	d := make(SourceDict)
	if s == "" {
		return d, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, &ValidationError{Message: "expected 'key:value'", Field: "tag", Value: pair}
		}
		if k == "" {
			return nil, &ValidationError{Message: "must not be empty", Field: "tag_name", Value: pair}
		}
		d[k] = v
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
