package config

// DefaultIgnorePatterns are matched case-insensitively against "./"-prefixed
// source paths. Matching files are neither rendered nor copied.
var DefaultIgnorePatterns = []string{
	`.*/_.*`,
	`.*/#.*`,
	`.*~$`,
	`.*/\..*\.swp$`,
	`.*/\.(git|hg|svn|bzr)$`,
	`.*/.(git|hg)ignore$`,
	`.*/CVS$`,
	`.*/\.env(\..*)?$`,
}

// SiteDefaults returns the lowest-precedence configuration layer.
// Controller settings are not listed here; controllers declare their own.
func SiteDefaults() map[string]any {
	patterns := make([]any, len(DefaultIgnorePatterns))
	for i, p := range DefaultIgnorePatterns {
		patterns[i] = p
	}
	return map[string]any{
		"site": map[string]any{
			"url":                  "http://www.yoursite.com",
			"output_dir":           DefaultOutputDir,
			"file_ignore_patterns": patterns,
			"template_vars":        map[string]any{},
		},
		"filters": map[string]any{
			"syntax_highlight": map[string]any{
				"style":   "murphy",
				"css_dir": "/css",
			},
		},
	}
}

// ApplyDefaults writes SiteDefaults into the defaults layer of store.
func ApplyDefaults(store *Store) {
	store.Merge(LayerDefaults, SiteDefaults())
}
