package app

import (
	"fmt"
	"os"
	"path/filepath"

	"lumen/internal/config"
	"lumen/internal/errors"
)

// CleanOutputs empties every output directory and recreates it. The protected
// directory and everything inside it is never touched, even when it sits below an
// output directory. The filesystem root and the working directory or any of its
// ancestors are refused before anything is removed.
func CleanOutputs(dirs []string, protected string) error {
	guard, err := filepath.Abs(protected)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", protected)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to resolve working directory")
	}

	targets := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", dir)
		}
		if abs == filepath.Dir(abs) || config.IsWithin(cwd, abs) {
			return errors.InvalidInput(fmt.Sprintf("refusing to clean %s: it is the filesystem root or contains the working directory", dir))
		}
		targets = append(targets, abs)
	}

	for _, abs := range targets {
		if config.IsWithin(abs, guard) {
			continue
		}
		if err := emptyDir(abs, guard); err != nil {
			return err
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return errors.Wrapf(err, "failed to recreate %s", abs)
		}
	}
	return nil
}

func emptyDir(dir, guard string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to list %s", dir)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case path == guard:
			continue
		case entry.IsDir() && config.IsWithin(guard, path):
			if err := emptyDir(path, guard); err != nil {
				return err
			}
		default:
			if err := os.RemoveAll(path); err != nil {
				return errors.Wrapf(err, "failed to remove %s", path)
			}
		}
	}
	return nil
}
