package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// list refreshes both listings from the working directory and renders them.
//
// DirectoryListing holds the subdirectories. FileListing holds every entry:
// regular files first, in the order shown, then directories and other
// entries. File numbers shown to the user are therefore valid deletion
// indices, and an index past the files names a non-file that deletion refuses.
func (e *Engine) list() string {
	dir := e.state.WorkDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "Error listing directory: " + fsError("readdir", dir, err).Error()
	}

	var dirs, files, others []string
	for _, entry := range entries {
		name := entry.Name()
		// Follow symlinks so a link to a directory is navigable.
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			others = append(others, name)
			continue
		}
		switch {
		case info.IsDir():
			dirs = append(dirs, name)
		case info.Mode().IsRegular():
			files = append(files, name)
		default:
			others = append(others, name)
		}
	}

	e.state.ListingDir = dir
	e.state.DirectoryListing = dirs
	e.state.FileListing = make([]string, 0, len(entries))
	e.state.FileListing = append(e.state.FileListing, files...)
	e.state.FileListing = append(e.state.FileListing, dirs...)
	e.state.FileListing = append(e.state.FileListing, others...)

	e.logger.Debug("Listing refreshed", "dir", dir, "dirs", len(dirs), "files", len(files))
	return formatListing(dirs, files)
}

func formatListing(dirs, files []string) string {
	if len(dirs) == 0 && len(files) == 0 {
		return "No files or directories found."
	}

	var b strings.Builder
	writeSection := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(title)
		b.WriteString("\n")
		for i, name := range names {
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(". ")
			b.WriteString(name)
			b.WriteString("\n")
		}
	}
	writeSection("Directories (can use 'move to X'):", dirs)
	writeSection("Files (can use 'delete file number X'):", files)
	return strings.TrimRight(b.String(), "\n")
}
