package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"plan-pricing/adapters/codec"
	"plan-pricing/adapters/hcl"
	"plan-pricing/core/catalog"
	"plan-pricing/core/model"
	"plan-pricing/internal/config"
	"plan-pricing/internal/errors"
)

// planSource returns path, or the configured catalog directory when path
// is empty.
func planSource(path string) string {
	if path != "" {
		return path
	}
	return config.Get().Catalog.Directory
}

// loadCatalog publishes every plan version found at path into a new
// catalog. path is either a single plan file or a directory whose .hcl,
// .json, .yaml and .yml files are read in name order.
func loadCatalog(path string, logger *zap.Logger) (*catalog.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Config("plan path is not readable", err).WithContext("path", path)
	}

	files := []string{path}
	if info.IsDir() {
		if files, err = planFiles(path); err != nil {
			return nil, err
		}
	}

	cat := catalog.New(catalog.WithLogger(logger))
	loader := hcl.NewLoader()

	for _, f := range files {
		plans, drafts, err := readPlanFile(loader, f)
		if err != nil {
			return nil, err
		}
		for _, p := range plans {
			if err := cat.RegisterPlan(p); err != nil {
				return nil, err
			}
		}
		for _, d := range drafts {
			if _, err := cat.Publish(d); err != nil {
				return nil, withFile(err, f)
			}
		}
	}

	logger.Debug("Loaded plan catalog",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("versions", cat.Stats().Versions))

	return cat, nil
}

func planFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Config("failed to read plan directory", err).WithContext("dir", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case hcl.Extension, ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readPlanFile(loader *hcl.Loader, path string) ([]model.Plan, []model.PlanVersionDraft, error) {
	if strings.EqualFold(filepath.Ext(path), hcl.Extension) {
		doc, err := loader.ParseFile(path)
		if err != nil {
			return nil, nil, err
		}
		return doc.Plans, doc.Versions, nil
	}

	draft, err := codec.ReadPlanVersion(path)
	if err != nil {
		return nil, nil, err
	}
	return nil, []model.PlanVersionDraft{draft}, nil
}

func withFile(err error, path string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithContext("file", path)
	}
	return err
}
