package keyspace

import "path/filepath"

// compileGlob returns a matcher function for a SCAN/KEYS MATCH pattern. An
// empty pattern or the literal "*" always matches, matching the reference
// scanGenericCommand's use_pattern shortcut. filepath.Match's glob dialect
// (*, ?, character classes) is a close match to the reference's
// stringmatchlen, with one difference: * and ? never match the path
// separator '/', so a key containing '/' only matches a pattern that spells
// out each '/' literally.
func compileGlob(pattern string) (func(string) bool, error) {
	if pattern == "" || pattern == "*" {
		return nil, nil
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	return func(s string) bool {
		ok, err := filepath.Match(pattern, s)
		return err == nil && ok
	}, nil
}
