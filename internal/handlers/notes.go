package handlers

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
)

// ItemNotes renders an item's Markdown notes. The response is JSON unless
// format=html asks for a standalone page.
func (h *Handler) ItemNotes(w http.ResponseWriter, r *http.Request) {
	item, err := h.app.Items.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var notes string
	if item.Notes != nil {
		notes = *item.Notes
	}
	rendered, err := h.app.Notes.Render(notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "html" {
		h.writeJSON(w, http.StatusOK, rendered)
		return
	}

	data := struct {
		Title   string
		URL     string
		Domain  string
		Content template.HTML
	}{
		Title:   rendered.Title(item.Title),
		URL:     item.URL,
		Domain:  item.Domain,
		Content: template.HTML(rendered.HTML),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.notesPage.Execute(w, data); err != nil {
		h.logger.Error("Failed to render notes page for item '%s': %v", item.ID, err)
	}
}

const notesTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - Reading List Notes</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #f5f5f5;
            margin: 0;
        }
        .notes-container {
            max-width: 800px;
            margin: 2rem auto;
            padding: 2rem;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .notes-header {
            border-bottom: 1px solid #eee;
            padding-bottom: 1rem;
            margin-bottom: 2rem;
        }
        .notes-domain {
            display: inline-block;
            background: #f0f0f0;
            padding: 0.25rem 0.5rem;
            border-radius: 4px;
            font-size: 0.8rem;
            margin-bottom: 0.5rem;
        }
        .notes-content {
            line-height: 1.6;
        }
        .notes-content pre {
            padding: 1rem;
            border-radius: 6px;
            overflow-x: auto;
            border: 1px solid #d1d9e0;
            font-family: 'SF Mono', 'Monaco', 'Inconsolata', 'Roboto Mono', monospace;
            font-size: 0.875rem;
        }
        .notes-content code {
            font-family: 'SF Mono', 'Monaco', 'Inconsolata', 'Roboto Mono', monospace;
        }
        .notes-content blockquote {
            border-left: 4px solid #ddd;
            margin: 1rem 0;
            padding-left: 1rem;
            color: #666;
        }
        .notes-content table {
            width: 100%;
            border-collapse: collapse;
        }
        .notes-content th, .notes-content td {
            border: 1px solid #ddd;
            padding: 0.5rem;
            text-align: left;
        }
    </style>
</head>
<body>
    <div class="notes-container">
        <header class="notes-header">
            <div class="notes-domain">{{.Domain}}</div>
            <h1>{{.Title}}</h1>
            <p><a href="{{.URL}}">{{.URL}}</a></p>
        </header>
        <main class="notes-content">
            {{.Content}}
        </main>
    </div>
</body>
</html>`
