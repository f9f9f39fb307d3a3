package library

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListSubLibraries returns the readable names of the immediate child
// directories of root whose name starts with prefix, prefix stripped, sorted.
// An empty root yields an empty list.
func ListSubLibraries(root, prefix string) ([]string, error) {
	if root == "" {
		return []string{}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-libraries: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		names = append(names, strings.TrimPrefix(e.Name(), prefix))
	}
	sort.Strings(names)

	return names, nil
}
