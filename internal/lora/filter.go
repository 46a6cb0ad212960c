package lora

import (
	"sort"
	"strings"
)

// Filter selects a subset of the collection for display.
type Filter struct {
	// Folder restricts results to IDs under this '/'-separated prefix.
	// Empty means all folders.
	Folder string
	// Search is a case-insensitive substring matched against the display
	// name and the relative path. Non-empty search flattens the listing.
	Search string
}

// Group is a set of files sharing their first path segment below the
// active folder; it backs one foldout in the plugin's list.
type Group struct {
	Name  string
	Files []File
}

// Listing is the result of filtering: files directly under the active
// folder, plus one group per subfolder. When a search is active all
// matches appear flat in Root and Groups is empty.
type Listing struct {
	Root   []File
	Groups []Group
}

// Folders returns every ancestor folder of the available files, sorted
// case-insensitively. It feeds the folder filter choices.
func (c *Collection) Folders() []string {
	set := map[string]struct{}{}
	for _, f := range c.Files() {
		if f.Source == SourceUnavailable {
			continue
		}
		parts := strings.Split(f.ID, "/")
		for i := 1; i < len(parts); i++ {
			set[strings.Join(parts[:i], "/")] = struct{}{}
		}
	}

	folders := make([]string, 0, len(set))
	for folder := range set {
		folders = append(folders, folder)
	}
	sort.Slice(folders, func(i, j int) bool {
		return strings.ToLower(folders[i]) < strings.ToLower(folders[j])
	})
	return folders
}

// List applies the filter to the available files. Files are ordered by
// display name (case-insensitive); groups are ordered by group name.
func (c *Collection) List(filter Filter) Listing {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	hasSearch := search != ""

	var listing Listing
	groups := map[string][]File{}

	for _, f := range c.Files() {
		if f.Source == SourceUnavailable {
			continue
		}
		if filter.Folder != "" && !strings.HasPrefix(f.ID, filter.Folder) {
			continue
		}
		if hasSearch &&
			!strings.Contains(strings.ToLower(f.Name), search) &&
			!strings.Contains(strings.ToLower(f.ID), search) {
			continue
		}

		// Path relative to the active folder decides root vs group.
		rel := f.ID
		if filter.Folder != "" {
			rel = strings.TrimLeft(strings.TrimPrefix(rel, filter.Folder), "/")
		}
		parts := strings.Split(rel, "/")

		switch {
		case hasSearch:
			// Search results are shown flat.
			listing.Root = append(listing.Root, f)
		case len(parts) == 1:
			listing.Root = append(listing.Root, f)
		default:
			groups[parts[0]] = append(groups[parts[0]], f)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	for _, name := range names {
		listing.Groups = append(listing.Groups, Group{Name: name, Files: groups[name]})
	}

	return listing
}
