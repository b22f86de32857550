// Package gitignore matches paths against gitignore patterns.
//
// Patterns are translated to doublestar globs: unanchored patterns match at
// any depth, patterns with a slash are anchored to the directory of the
// .gitignore that declared them, a trailing slash restricts a pattern to
// directories, and a leading "!" re-includes a previously ignored path.
//
// Usage:
//
//	m := gitignore.New()
//	m.AddPattern("*.log")
//	m.AddPattern("!important.log")
//	m.AddPattern("/build/")
//
//	if m.Match("error.log", false) {
//	    // File is ignored
//	}
//
// For nested gitignore files:
//
//	m.AddFromFile("/path/to/project/.gitignore", "")
//	m.AddFromFile("/path/to/project/src/.gitignore", "src")
package gitignore
