package brand

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is one compositing run: the copy, the brand and the base images it goes on.
//
// E.g.,
//
//	prefix: campaigns/new-year
//	copy:
//	  headline: 新春セール開催中！
//	  bodyText: 今だけ半額
//	  ctaText: 今すぐチェック
//	brand:
//	  fontFamily: LINESeedJP
//	  colors: {primary: "#0B3D91", accent: "#FF5A1F"}
//	  logo: assets/logo.png
//	images:
//	  - id: hero
//	    source: https://cdn.example.com/hero.jpg
//	  - id: shop
//	    source: images/shop.png
type Job struct {
	// Object key prefix of the results.
	Prefix string  `yaml:"prefix"`
	Copy   Copy    `yaml:"copy"`
	Brand  Brand   `yaml:"brand"`
	Images []Image `yaml:"images"`
}

type Copy struct {
	Headline string `yaml:"headline"`
	BodyText string `yaml:"bodyText"`
	CTAText  string `yaml:"ctaText"`
}

type Brand struct {
	// Empty means the default font family.
	FontFamily string `yaml:"fontFamily"`
	Colors     Colors `yaml:"colors"`
	// Logo file path, relative to the job file.
	Logo string `yaml:"logo"`
}

// Hex colors. E.g., "#0B3D91"
type Colors struct {
	Primary    string `yaml:"primary"`
	Accent     string `yaml:"accent"`
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
}

type Image struct {
	ID string `yaml:"id"`
	// http(s) URL or a file path relative to the job file.
	Source string `yaml:"source"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Load reads a job file and resolves its relative paths against the file's directory.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	if err := job.validate(); err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if job.Brand.Logo != "" {
		job.Brand.Logo = resolve(dir, job.Brand.Logo)
	}
	for i := range job.Images {
		job.Images[i].Source = resolve(dir, job.Images[i].Source)
	}
	return &job, nil
}

// LogoBytes reads the logo file, or returns nil when the brand has none.
func (j *Job) LogoBytes() ([]byte, error) {
	if j.Brand.Logo == "" {
		return nil, nil
	}
	data, err := os.ReadFile(j.Brand.Logo)
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	return data, nil
}

func (j *Job) validate() error {
	if strings.TrimSpace(j.Copy.Headline) == "" {
		return errors.New("copy.headline is required")
	}
	if len(j.Images) == 0 {
		return errors.New("at least one image is required")
	}
	seen := map[string]bool{}
	for i, image := range j.Images {
		if image.ID == "" {
			return fmt.Errorf("images[%d].id is required", i)
		}
		if seen[image.ID] {
			return fmt.Errorf("duplicate image id %q", image.ID)
		}
		seen[image.ID] = true
		if image.Source == "" {
			return fmt.Errorf("images[%d].source is required", i)
		}
	}
	return nil
}

func resolve(dir string, source string) string {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") || filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(dir, source)
}
