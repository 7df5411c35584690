// Package web contains the HTML rendering shared by the page handlers
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/storage"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Renderer keeps one template set per page, each parsed together with the
// shared layout. It implements gin's render.HTMLRender.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

// NewRenderer parses every page template. images backs the
// optimizedImageUrl template function.
func NewRenderer(images storage.Store) (*Renderer, error) {
	funcs := template.FuncMap{
		"optimizedImageUrl": optimizedImageURL(images),
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}

	for _, p := range pages {
		if p == layoutFile {
			continue
		}

		t, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s, %w", p, err)
		}

		r.pages[strings.TrimSuffix(path.Base(p), ".html")] = t
	}

	return r, nil
}

// optimizedImageURL backs the optimizedImageUrl template function. It takes
// either a bare width or key/value pairs:
//
//	{{optimizedImageUrl .Image 300}}
//	{{optimizedImageUrl .Image "width" 300 "quality" 70 "format" "webp"}}
func optimizedImageURL(images storage.Store) func(string, ...any) (string, error) {
	return func(ref string, args ...any) (string, error) {
		o := storage.TransformOpts{}

		if len(args) == 1 {
			w, ok := args[0].(int)
			if !ok {
				return "", fmt.Errorf("optimizedImageUrl: width must be an int, got %T", args[0])
			}

			o.Width = w
			return images.OptimizedURL(ref, o), nil
		}

		if len(args)%2 != 0 {
			return "", errors.New("optimizedImageUrl: options must be key/value pairs")
		}

		for i := 0; i < len(args); i += 2 {
			key, _ := args[i].(string)

			var ok bool
			switch key {
			case "width":
				o.Width, ok = args[i+1].(int)
			case "quality":
				o.Quality, ok = args[i+1].(int)
			case "format":
				o.Format, ok = args[i+1].(string)
			default:
				return "", fmt.Errorf("optimizedImageUrl: unknown option %v", args[i])
			}

			if !ok {
				return "", fmt.Errorf("optimizedImageUrl: bad value %T for %s", args[i+1], key)
			}
		}

		return images.OptimizedURL(ref, o), nil
	}
}

func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic("web: unknown template " + name)
	}

	return render.HTML{
		Template: t,
		Name:     path.Base(layoutFile),
		Data:     data,
	}
}

// Render writes page with data plus the values every page needs
func Render(c *gin.Context, d *internal.Deps, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	data["isAuthenticated"] = c.GetBool(middleware.IsAuthenticatedKey)
	data["requestID"] = c.GetString(middleware.RequestIDKey)

	data["flashes"] = d.Flashes.Pop(c)

	if d.Config != nil && d.Config.Cloudflare.Turnstile.Enabled {
		data["turnstileSiteKey"] = d.Config.Cloudflare.Turnstile.SiteKey
	}

	c.HTML(status, page, data)
}
