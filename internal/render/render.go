// Package render materializes text templates into a build's staging tree.
//
// Templates are looked up in the source directory, then in its _templates
// directory, then among the embedded defaults. Every file below _templates and
// every embedded default is parsed into one associated set, so any template
// can include another with {{template "name" .}}.
package render

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// TemplatesDir holds templates that are only referenced by other templates.
const TemplatesDir = "_templates"

// TemplateExt marks source files that are rendered instead of copied.
const TemplateExt = ".tmpl"

//go:embed all:defaults
var defaultTemplates embed.FS

// Options configures a Renderer.
type Options struct {
	SourceDir  string
	StagingDir string
	Site       *config.Site
	Logger     *slog.Logger
	// Data is shared build state. Its keys are bound into every template
	// unless the page environment sets them.
	Data map[string]any
}

// Renderer renders templates for one build.
type Renderer struct {
	opts    Options
	logger  *slog.Logger
	base    *template.Template
	written int
}

// New parses the embedded defaults and the source tree's _templates directory.
func New(opts Options) (*Renderer, error) {
	if opts.StagingDir == "" {
		return nil, errors.ValidationError("renderer needs a staging directory").Build()
	}
	if opts.Site == nil {
		return nil, errors.ValidationError("renderer needs site settings").Build()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{opts: opts, logger: logger}

	base := template.New("").Option("missingkey=error").Funcs(funcMap(opts.Site))
	sub, err := fs.Sub(defaultTemplates, "defaults")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "embedded templates missing").Fatal().Build()
	}
	if err := parseTree(base, sub); err != nil {
		return nil, err
	}
	if opts.SourceDir != "" {
		dir := filepath.Join(opts.SourceDir, TemplatesDir)
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			if err := parseTree(base, os.DirFS(dir)); err != nil {
				return nil, err
			}
		}
	}
	r.base = base
	return r, nil
}

// parseTree adds every regular file of fsys to set, named by its slash path.
// Later definitions replace earlier ones of the same name.
func parseTree(set *template.Template, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if _, err := set.New(name).Parse(string(body)); err != nil {
			return errors.WrapError(err, errors.CategoryRender, "template parse failed").
				Fatal().WithContext("template", name).Build()
		}
		return nil
	})
}

// Templates lists the names of the associated template set.
func (r *Renderer) Templates() []string {
	var names []string
	for _, t := range r.base.Templates() {
		if t.Name() != "" {
			names = append(names, t.Name())
		}
	}
	slices.Sort(names)
	return names
}

// lookup resolves a template id against the search path.
func (r *Renderer) lookup(id string) (*template.Template, error) {
	id = strings.TrimPrefix(path.Clean("/"+id), "/")
	if r.opts.SourceDir != "" {
		candidate := filepath.Join(r.opts.SourceDir, filepath.FromSlash(id))
		// #nosec G304 -- id is cleaned and joined below the source directory
		if body, err := os.ReadFile(candidate); err == nil {
			return r.parseStandalone(id, body)
		}
	}
	if t := r.base.Lookup(id); t != nil {
		return t, nil
	}
	return nil, errors.RenderError("template not found").WithContext("template", id).Build()
}

func (r *Renderer) parseStandalone(name string, body []byte) (*template.Template, error) {
	set, err := r.base.Clone()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "template set clone failed").Fatal().Build()
	}
	t, err := set.Option("missingkey=error").New(name).Parse(string(body))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "template parse failed").
			Fatal().WithContext("template", name).Build()
	}
	return t, nil
}

// bind builds the data of one render: the page environment, shared build
// data, the site's template variables and the standard names site and
// template_name. Page keys win.
func (r *Renderer) bind(name string, env map[string]any) map[string]any {
	data := make(map[string]any, len(env)+len(r.opts.Data)+len(r.opts.Site.TemplateVars)+3)
	data["blog"] = nil
	maps.Copy(data, r.opts.Site.TemplateVars)
	maps.Copy(data, r.opts.Data)
	data["site"] = r.opts.Site
	data["template_name"] = name
	maps.Copy(data, env)
	return data
}

func (r *Renderer) execute(t *template.Template, env map[string]any) ([]byte, error) {
	data := r.bind(t.Name(), env)
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "template render failed").
			Fatal().
			WithContext("template", t.Name()).
			WithContext("keys", strings.Join(slices.Sorted(maps.Keys(data)), ",")).
			Build()
	}
	return buf.Bytes(), nil
}

// Materialize renders templateID with env into outputPath below the staging
// directory, creating parent directories.
func (r *Renderer) Materialize(ctx context.Context, templateID, outputPath string, env map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := r.lookup(templateID)
	if err != nil {
		return err
	}
	out, err := r.execute(t, env)
	if err != nil {
		return err
	}
	r.logger.Debug("Materialized template", logfields.Template(templateID), logfields.Path(outputPath))
	return r.write(outputPath, out)
}

// RenderFile renders a standalone template of the source tree. rel is the
// slash separated path below the source directory; the output drops the
// template extension.
func (r *Renderer) RenderFile(ctx context.Context, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// #nosec G304 -- rel comes from walking the source directory
	body, err := os.ReadFile(filepath.Join(r.opts.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "error reading template").
			WithContext("template", rel).Build()
	}
	t, err := r.parseStandalone(rel, body)
	if err != nil {
		return "", err
	}
	out, err := r.execute(t, nil)
	if err != nil {
		return "", err
	}
	dest := strings.TrimSuffix(rel, TemplateExt)
	return dest, r.write(dest, out)
}

// write stores content at rel below the staging directory.
func (r *Renderer) write(rel string, content []byte) error {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.ValidationError("output path escapes the staging directory").
			WithContext("path", rel).Build()
	}
	full := filepath.Join(r.opts.StagingDir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", full).Build()
	}
	// #nosec G306 -- rendered pages are public assets
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").
			WithContext("path", full).Build()
	}
	r.written++
	return nil
}

// Written reports how many files the renderer has written.
func (r *Renderer) Written() int {
	return r.written
}
