package main

import "path/filepath"

func stackLabel(dir string) string {
	if base := filepath.Base(dir); base != "." && base != string(filepath.Separator) {
		return base
	}
	return dir
}
