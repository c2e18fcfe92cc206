package main

import (
	"os"

	"github.com/lyndonlyu/ripcord/internal/config"
	"github.com/lyndonlyu/ripcord/internal/passport"
)

// openProject locates the project root and returns its config and passport
// store. Shared pre-flight for every subcommand.
func openProject() (*config.Config, *passport.FileStore, error) {
	cwd, _ := os.Getwd()
	root, err := config.FindRoot(cwd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	return cfg, passport.NewFileStore(cfg.PassportPath()), nil
}
