package engine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/ashureev/shsh-voice/internal/domain"
)

func (e *Engine) deleteIndex(index int) string {
	listing := e.state.FileListing
	if len(listing) == 0 {
		return "No file listing available. Please use 'list files' first."
	}
	if index < 0 || index >= len(listing) {
		return (&domain.IndexOutOfRangeError{Kind: "File index", Index: index + 1, Len: len(listing)}).Error()
	}

	name := listing[index]
	path := filepath.Join(e.listingBase(), name)

	info, err := os.Stat(path)
	if err != nil {
		return "Error deleting file: " + fsError("remove", path, err).Error()
	}
	if !info.Mode().IsRegular() {
		return "Cannot delete '" + name + "' as it's not a file."
	}

	// Content is kept only when it reads cleanly as text; binary or
	// unreadable files are restored empty.
	deleted := &domain.DeletedFile{Path: path, Mode: info.Mode().Perm()}
	if data, err := os.ReadFile(path); err != nil {
		e.logger.Debug("Could not save content before delete", "path", path, "error", err)
	} else if utf8.Valid(data) {
		deleted.Content = data
		deleted.HasContent = true
	}

	if err := os.Remove(path); err != nil {
		return "Error deleting file: " + fsError("remove", path, err).Error()
	}
	deleted.DeletedAt = time.Now()
	e.state.LastDeleted = deleted

	e.logger.Info("File deleted", "path", path, "content_saved", deleted.HasContent)
	return "Deleted file: " + name
}

func (e *Engine) undoDelete() string {
	last := e.state.LastDeleted
	if last == nil {
		return "No file has been deleted yet."
	}
	if _, err := os.Lstat(last.Path); err == nil {
		return "The file was not actually deleted or has already been restored."
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "Error recreating file: " + fsError("stat", last.Path, err).Error()
	}

	mode := last.Mode
	if mode == 0 {
		mode = 0644
	}
	f, err := os.OpenFile(last.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return "Error recreating file: " + fsError("create", last.Path, err).Error()
	}
	if last.HasContent {
		if _, err := f.Write(last.Content); err != nil {
			_ = f.Close()
			return "Error recreating file: " + fsError("write", last.Path, err).Error()
		}
	}
	if err := f.Close(); err != nil {
		return "Error recreating file: " + fsError("close", last.Path, err).Error()
	}

	name := filepath.Base(last.Path)
	e.logger.Info("File restored", "path", last.Path, "content_restored", last.HasContent)
	if last.HasContent {
		return "Restored file with original content: " + name
	}
	return "Restored empty file (original content couldn't be preserved): " + name
}

func (e *Engine) createFile(name string) string {
	if name == "" {
		name = domain.DefaultFileName
	}
	path := e.resolvePath(name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "Error creating file: " + fsError("create", path, err).Error()
	}
	if err := f.Close(); err != nil {
		return "Error creating file: " + fsError("close", path, err).Error()
	}
	return "Created file: " + name
}
