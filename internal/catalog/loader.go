package catalog

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var categorySchema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("catalog schema: %v", err))
	}
	return s
}

// Load reads every .yaml/.yml file under rootDir as one category.
// Files that fail to parse or validate are skipped with a warning.
func Load(rootDir string) (*Catalog, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading catalog: %s is not a directory", rootDir)
	}

	var paths []string
	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking catalog: %w", err)
	}
	slices.Sort(paths)

	hash, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}

	var categories []Category
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		cat, err := parseCategory(data)
		if err != nil {
			slog.Warn("skipping invalid category YAML", "path", path, "error", err)
			continue
		}

		rel, _ := filepath.Rel(rootDir, path)
		hash.Write([]byte(filepath.ToSlash(rel)))
		hash.Write([]byte{0})
		hash.Write(data)
		categories = append(categories, cat)
	}

	c, err := build(categories, hex.EncodeToString(hash.Sum(nil)))
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded",
		"categories", len(c.categories),
		"lessons", len(c.lessons),
		"fingerprint", c.fingerprint[:12],
	)
	return c, nil
}

func parseCategory(data []byte) (Category, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Category{}, fmt.Errorf("parse: %w", err)
	}
	if doc == nil {
		return Category{}, fmt.Errorf("empty document")
	}

	result, err := categorySchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Category{}, fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Category{}, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}

	var cat Category
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Category{}, fmt.Errorf("decode: %w", err)
	}
	return cat, nil
}
