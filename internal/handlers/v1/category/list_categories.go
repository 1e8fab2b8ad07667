package category

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/budget-server/internal/category"
)

type Category struct {
	Name string `json:"name"`
	Kind string `json:"kind" enum:"income,expense"`
	Icon string `json:"icon"`
}

type ListCategoriesResponseBody struct {
	Categories       []Category `json:"categories" doc:"Registry order"`
	DefaultSelection string     `json:"defaultSelection" doc:"Category preselected for a new draft"`
}

type ListCategoriesOutput struct {
	Body ListCategoriesResponseBody
}

// ListCategoriesHandler handles GET /v1/category.
type ListCategoriesHandler struct {
	Categories *category.Registry
}

func NewListCategoriesHandler(registry *category.Registry) *ListCategoriesHandler {
	return &ListCategoriesHandler{Categories: registry}
}

func (h *ListCategoriesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/v1/category",
		Summary:     "List categories",
		Tags:        []string{"Categories"},
	}, h.handle)
}

func (h *ListCategoriesHandler) handle(ctx context.Context, _ *struct{}) (*ListCategoriesOutput, error) {
	all := h.Categories.All()
	body := ListCategoriesResponseBody{
		Categories:       make([]Category, len(all)),
		DefaultSelection: h.Categories.DefaultSelection().Name,
	}
	for i, c := range all {
		body.Categories[i] = Category{Name: c.Name, Kind: string(c.Kind), Icon: c.Icon}
	}
	return &ListCategoriesOutput{Body: body}, nil
}
