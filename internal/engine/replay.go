package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
)

// ReviewFile is the optional fixture next to the configuration file which
// lists the ambiguities a replayed scan raises.
const ReviewFile = "review.yaml"

var pictureExtensions = map[string]bool{
	".webp": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Replay is an Engine driven by an on-disk fixture instead of real OCR.
// It walks the configuration directory for page pictures, raises the
// conflicts listed in review.yaml and logs every resolution. It backs the
// end-to-end tests and serves as the engine until a real recognizer is
// plugged in.
type Replay struct {
	out io.Writer
}

func NewReplay(out io.Writer) Replay {
	if out == nil {
		out = io.Discard
	}
	return Replay{out: out}
}

type fixture struct {
	Conflicts []conflict `yaml:"conflicts"`
	// Fail makes the run end with a plain (non-serializable) error.
	Fail string `yaml:"fail,omitempty"`
	// FailKind makes the run end with a structured protocol.ScanError.
	FailKind string `yaml:"fail_kind,omitempty"`
}

type conflict struct {
	Type       string `yaml:"type"` // integrity | name | answers
	Picture    string `yaml:"picture,omitempty"`
	PictureB   string `yaml:"picture_b,omitempty"`
	Suggestion string `yaml:"suggestion,omitempty"`
	Document   int    `yaml:"document,omitempty"`
	Page       int    `yaml:"page,omitempty"`
}

func (e Replay) Scan(ctx context.Context, path string, r Resolver) error {
	dir := filepath.Dir(path)

	pictures, err := listPictures(dir)
	if err != nil {
		return fmt.Errorf("listing pictures: %w", err)
	}
	fmt.Fprintf(e.out, "Analyzing %q: %d page picture(s) found.\n", filepath.Base(path), len(pictures))

	fx, err := loadFixture(filepath.Join(dir, ReviewFile))
	if err != nil {
		return fmt.Errorf("loading %s: %w", ReviewFile, err)
	}

	for i, c := range fx.Conflicts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.resolve(ctx, r, c); err != nil {
			return fmt.Errorf("conflict %d (%s): %w", i+1, c.Type, err)
		}
	}

	switch {
	case fx.FailKind != "":
		return protocol.ScanError{Kind: fx.FailKind, Text: fx.Fail}
	case fx.Fail != "":
		return errors.New(fx.Fail)
	}
	return nil
}

func (e Replay) resolve(ctx context.Context, r Resolver, c conflict) error {
	switch c.Type {
	case "integrity":
		choice, err := r.SelectVersion(ctx, c.Picture, c.PictureB)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Duplicate page resolved: %s.\n", choice)
	case "name":
		name, err := r.ReviewName(ctx, c.Picture, c.Suggestion)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Student name confirmed: %s.\n", name)
	case "answers":
		page := model.PageData{
			DocumentID: c.Document,
			Page:       c.Page,
			Picture:    c.Picture,
		}
		review, err := r.ReviewAnswers(ctx, page)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Answers reviewed: %d correction(s).\n", len(review.Corrections))
	default:
		return fmt.Errorf("unknown conflict type %q", c.Type)
	}
	return nil
}

func loadFixture(path string) (fixture, error) {
	var fx fixture
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// no fixture means a clean run with zero ambiguities
			return fx, nil
		}
		return fx, err
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fx, err
	}
	return fx, nil
}

func listPictures(dir string) ([]string, error) {
	var pictures []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if pictureExtensions[strings.ToLower(filepath.Ext(path))] {
			pictures = append(pictures, path)
		}
		return nil
	})
	return pictures, err
}
