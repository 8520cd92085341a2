package schema

import (
	"fmt"
	"sort"
	"strings"

	"typedcsv/internal/charset"
	"typedcsv/internal/config"
	"typedcsv/internal/parser"
)

// ConsumesHeader reports whether the first raw row is a header under cfg.
func ConsumesHeader(cfg config.Parse) bool {
	switch cfg.Header {
	case config.HeaderUse, config.HeaderSkip:
		return true
	case config.HeaderUnset:
		return cfg.Columns.Keyed()
	}
	return false
}

// namesFromHeader reports whether a consumed header row supplies names.
func namesFromHeader(cfg config.Parse) bool {
	return cfg.Header == config.HeaderUse || (cfg.Header == config.HeaderUnset && cfg.Columns.Keyed())
}

// Resolve builds the Schema for one parse.
//
// header is the consumed header row, or nil when none was consumed (or the
// input was empty). width is the field count of the first data row and is
// only used without a header; pass -1 when there are no rows at all.
// Without a header the schema is at least as wide as the positional
// configuration, so a short first row is dropped like any other.
func Resolve(cfg config.Parse, header []parser.Field, width int) (*Schema, error) {
	useNames := namesFromHeader(cfg) && header != nil

	n := width
	if header != nil {
		n = len(header)
	} else if len(cfg.Columns.ByPosition) > n {
		n = len(cfg.Columns.ByPosition)
	}
	if n < 0 {
		n = 0
	}

	s := &Schema{
		Columns:        make([]Column, n),
		HeaderConsumed: header != nil,
		StartRow:       StartRow(cfg.OffsetRows),
		RowAsHash:      cfg.RowAsHash,
	}
	for i := range s.Columns {
		c := &s.Columns[i]
		c.Index = i
		c.Type = TypeString
		if useNames {
			c.Name = charset.HeaderName(header[i].Text, header[i].Encoding)
			c.Named = true
		}
	}

	var err error
	if cfg.Columns.Keyed() {
		err = applyByName(s, cfg, header != nil)
	} else {
		err = applyByPosition(s, cfg.Columns.ByPosition)
	}
	if err != nil {
		return nil, err
	}

	for i := range s.Columns {
		c := &s.Columns[i]
		if cfg.OnlyListedColumns && !c.Configured {
			c.Omit = true
		}
		switch {
		case c.Alias != "":
			c.Key = c.Alias
		case c.Named:
			c.Key = c.Name
		default:
			c.Key = indexKey(i)
		}
	}
	if s.RowAsHash {
		if err := checkKeys(s, cfg.Columns.Keyed()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// applyByName matches name-keyed configuration against header names. With
// no input at all there is nothing to match and the schema stays empty.
func applyByName(s *Schema, cfg config.Parse, haveInput bool) error {
	if len(cfg.Columns.ByName) > 0 && !namesFromHeader(cfg) {
		return configErrorf("columns", "columns keyed by name need a header row, but header is %q", cfg.Header)
	}
	if !haveInput {
		return nil
	}

	index := make(map[string]int, len(s.Columns))
	for i := len(s.Columns) - 1; i >= 0; i-- {
		index[s.Columns[i].Name] = i // first occurrence wins
	}

	names := make([]string, 0, len(cfg.Columns.ByName))
	for name := range cfg.Columns.ByName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := fmt.Sprintf("columns[%q]", name)
		i, ok := index[charset.Key(name)]
		if !ok {
			return configErrorf(path, "no header column named %q (header: %s)", name, headerList(s))
		}
		if err := apply(&s.Columns[i], cfg.Columns.ByName[name], path); err != nil {
			return err
		}
	}
	return nil
}

func applyByPosition(s *Schema, cols []config.Column) error {
	if len(cols) > len(s.Columns) {
		return configErrorf(fmt.Sprintf("columns[%d]", len(s.Columns)),
			"%d columns configured but input rows have %d fields", len(cols), len(s.Columns))
	}
	for i, cc := range cols {
		if err := apply(&s.Columns[i], cc, fmt.Sprintf("columns[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func apply(c *Column, cc config.Column, path string) error {
	t, err := ParseType(cc.Type)
	if err != nil {
		return configErrorf(path+".type", "%v", err)
	}
	c.Type = t
	c.Alias = cc.Alias
	c.Configured = true
	if cc.Default != nil {
		c.Default = *cc.Default
		c.HasDefault = true
	}
	if c.Match, err = resolvePredicate(cc.Match, t, path+".match"); err != nil {
		return err
	}
	if c.NotMatch, err = resolvePredicate(cc.NotMatch, t, path+".not_match"); err != nil {
		return err
	}
	return nil
}

// checkKeys rejects two emitted columns that share an output key.
func checkKeys(s *Schema, keyed bool) error {
	seen := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		if c.Omit {
			continue
		}
		if j, dup := seen[c.Key]; dup {
			path := fmt.Sprintf("columns[%d]", i)
			if keyed && c.Configured {
				path = fmt.Sprintf("columns[%q]", c.Name)
			}
			if c.Alias != "" {
				path += ".alias"
			}
			return configErrorf(path, "output key %q of column %d collides with column %d", c.Key, i, j)
		}
		seen[c.Key] = i
	}
	return nil
}

func headerList(s *Schema) string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = fmt.Sprintf("%q", c.Name)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
