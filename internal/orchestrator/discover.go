package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"fstack/internal/media"
	"fstack/internal/stacker"
)

// discoverStackDirs returns the direct subdirectories of root whose names
// match the stack naming pattern, sorted by stack number.
func discoverStackDirs(root, namePattern string) ([]string, error) {
	if namePattern == "" {
		namePattern = stacker.DefaultNameFormat
	}
	matcher, err := nameMatcher(namePattern)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read root directory: %w", err)
	}

	type numbered struct {
		path  string
		index int
	}
	var found []numbered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		index, ok := matcher(entry.Name())
		if !ok {
			continue
		}
		found = append(found, numbered{path: filepath.Join(root, entry.Name()), index: index})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	dirs := make([]string, 0, len(found))
	for _, item := range found {
		dirs = append(dirs, item.path)
	}
	return dirs, nil
}

// nameMatcher derives a directory name matcher from an fmt pattern such as
// "Stack_%03d": the literal prefix and suffix must match and the middle must
// be an integer.
func nameMatcher(pattern string) (func(string) (int, bool), error) {
	verb := regexp.MustCompile(`%0?\d*d`)
	loc := verb.FindStringIndex(pattern)
	if loc == nil {
		return nil, fmt.Errorf("stack name format %q has no integer verb", pattern)
	}
	prefix, suffix := pattern[:loc[0]], pattern[loc[1]:]
	return func(name string) (int, bool) {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			return 0, false
		}
		middle := name[len(prefix) : len(name)-len(suffix)]
		index, err := strconv.Atoi(middle)
		if err != nil || index < 1 {
			return 0, false
		}
		return index, true
	}, nil
}

// hasProcessableImages reports whether dir itself holds at least two images,
// the minimum for focus compositing.
func hasProcessableImages(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("read directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if media.IsImage(entry.Name()) {
			count++
			if count >= 2 {
				return true, nil
			}
		}
	}
	return false, nil
}

// stackMembers lists the image files directly inside a stack directory,
// sorted by name. After layout the directory contents are ground truth, and
// capture order matches name order for camera-sequenced files.
func stackMembers(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read stack directory: %w", err)
	}
	var members []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if media.IsImage(entry.Name()) {
			members = append(members, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(members)
	return members, nil
}
