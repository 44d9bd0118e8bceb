package templates

import (
	"fmt"

	"github.com/JonMunkholm/tcgen/internal/core"
	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/a-h/templ"
)

// DashboardParams is the data shown on the main page.
type DashboardParams struct {
	Institution string
	Query       string
	Records     []schema.StoredRecord
	Total       int
	Jobs        []core.BatchProgress
}

// PageTitle prefixes the certificate title with the institution, if set.
func (p DashboardParams) PageTitle() string {
	if p.Institution == "" {
		return render.Title
	}
	return p.Institution + " - " + render.Title
}

func certificateURL(id int64) templ.SafeURL {
	return templ.SafeURL(fmt.Sprintf("/api/records/%d/certificate", id))
}
