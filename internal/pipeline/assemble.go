package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/extract"
	"github.com/starford/notegen/internal/frontmatter"
	"github.com/starford/notegen/internal/hierarchy"
	"github.com/starford/notegen/internal/models"
	"github.com/starford/notegen/internal/note"
	"github.com/starford/notegen/internal/resolver"
	"github.com/starford/notegen/internal/schema"
)

type assembled struct {
	meta  *models.Metadata
	order []string
	body  note.Document
}

// assemble builds the metadata and body of a note. Precedence, highest
// first: explicit source metadata, hierarchy labels, resolver output,
// template defaults. Every layer below the first only fills empty keys.
func (p *Processor) assemble(ctx context.Context, src, fileType string, content *extract.Content, summary string, opts Options) (*assembled, error) {
	explicit := models.NewMetadata()
	if fileType == extract.TypeMarkdown {
		explicit, _ = frontmatter.Split([]byte(content.Source))
	}

	info := hierarchy.Resolve(src, p.vault)
	if err := info.Err(); err != nil {
		p.logger.Warn("pipeline: no hierarchy", slog.String("path", src), slog.String("error", err.Error()))
	}

	// One catalog snapshot per document: a reload mid-document is not seen.
	catalog := p.deps.Catalog.Current()
	tmpl := catalog.Select(schema.Selection{
		Override: opts.TemplateOverride,
		Explicit: explicit.String("template_type"),
		FileType: fileType,
		Depth:    info.Depth(),
	})

	meta := explicit.Clone()
	title := frontmatter.Title(explicit, "")
	if title == "" {
		title = content.Title
	}
	if title == "" {
		title = note.TitleFromPath(src)
	}
	meta.SetIfEmpty("title", title)
	if opts.TemplateOverride != "" {
		meta.Set("template_type", tmpl.Type)
	} else {
		meta.SetIfEmpty("template_type", tmpl.Type)
	}

	hierarchy.NewDetector(catalog).Inject(meta, info, tmpl.Type)

	if err := p.resolve(ctx, meta, src, fileType, content, explicit, tmpl); err != nil {
		return nil, err
	}
	if content.Pages > 0 {
		meta.SetIfEmpty("pages", content.Pages)
	}

	for _, f := range tmpl.Fields {
		if f.Required || f.Reserved || f.Default != nil {
			if !meta.HasValue(f.Name) {
				meta.SetIfEmpty(f.Name, f.DefaultValue())
			}
		}
	}

	relPath := info.Path
	if relPath == "" {
		relPath = filepath.Base(src)
	}
	if banner := p.deps.Banners.Resolve(opts.BannerOverride, relPath, tmpl.Type); banner != "" {
		if opts.BannerOverride != "" {
			meta.Set("banner", banner)
		} else {
			meta.SetIfEmpty("banner", banner)
		}
	}

	body := summary
	if body == "" {
		body = content.Text
	}
	return &assembled{
		meta:  meta,
		order: tmpl.FieldOrder(),
		body:  note.Document{Title: meta.String("title"), Body: body},
	}, nil
}

// resolve runs the resource, file-type and tag resolvers in that order.
func (p *Processor) resolve(ctx context.Context, meta *models.Metadata, src, fileType string, content *extract.Content, explicit *models.Metadata, tmpl *schema.Template) error {
	reg := p.deps.Resolvers
	reserved := tmpl.ReservedKeys()

	type call struct {
		name string
		r    resolver.Resolver
		rc   *resolver.Context
	}
	var calls []call

	if fileType != extract.TypeMarkdown {
		if r, ok := reg.GetKind(resolver.KindResource); ok {
			calls = append(calls, call{string(resolver.KindResource), r, &resolver.Context{FilePath: src, Flags: p.deps.Flags}})
		}
	}
	if r, ok := reg.GetFileTypeResolver(fileType); ok {
		rc := &resolver.Context{FilePath: src, Content: content.Source, Reserved: reserved, Flags: p.deps.Flags}
		switch {
		case fileType == extract.TypeVideo && content.SidecarPath == "":
			r = nil
		case fileType == extract.TypeVideo:
			rc.FilePath = content.SidecarPath
		}
		if r != nil {
			calls = append(calls, call{fileType, r, rc})
		}
	}

	for _, c := range calls {
		out, err := c.r.ExtractMetadata(ctx, c.rc)
		if err != nil {
			return apperr.Mark(err, apperr.ErrResolverExecution, "resolver %s on %s", c.name, src)
		}
		fill(meta, out)
	}

	if r, ok := reg.GetKind(resolver.KindTags); ok {
		tv, _ := explicit.Get("tags")
		rc := &resolver.Context{
			FilePath: src,
			Content:  content.Text,
			Tags:     resolver.Strings(tv),
			Reserved: reserved,
			Flags:    p.deps.Flags,
		}
		out, err := r.ExtractMetadata(ctx, rc)
		if err != nil {
			return apperr.Mark(err, apperr.ErrResolverExecution, "resolver tags on %s", src)
		}
		// Normalized tags replace the raw explicit list.
		tags := resolver.Strings(out["tags"])
		if tags == nil {
			tags = []string{}
		}
		if _, had := explicit.Get("tags"); had || len(tags) > 0 {
			meta.Set("tags", tags)
		}
		if conflicts := resolver.Strings(out[resolver.ConflictsKey]); len(conflicts) > 0 {
			p.logger.Warn("pipeline: tags dropped, they conflict with reserved keys",
				slog.String("path", src),
				slog.Any("tags", conflicts))
		}
		delete(out, "tags")
		delete(out, resolver.ConflictsKey)
		fill(meta, out)
	}
	return nil
}

// fill copies resolver output into empty keys in sorted key order so that
// repeated runs insert keys identically.
func fill(meta *models.Metadata, out map[string]any) {
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if out[k] == nil {
			continue
		}
		meta.SetIfEmpty(k, frontmatter.Canonical(out[k]))
	}
}
