package api

import (
	"bitwise74/campus-finder/model"
	"bitwise74/campus-finder/store"
	"bitwise74/campus-finder/validators"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *API) ItemFetch(c *gin.Context) {
	item, err := a.Items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fromError(c, err, "Failed to fetch item").Send(c)
		return
	}

	Ok("", gin.H{"item": item}).Send(c)
}

func (a *API) ItemFetchBulk(c *gin.Context) {
	f, err := parseItemFilter(c)
	if err != nil {
		Err(KindValidation, err.Error()).Send(c)
		return
	}

	items, err := a.Items.List(c.Request.Context(), f)
	if err != nil {
		fromError(c, err, "Failed to list items").Send(c)
		return
	}

	Ok("", gin.H{"items": items}).Send(c)
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseItemFilter(c *gin.Context) (model.ItemFilter, error) {
	f := model.ItemFilter{
		Type:       strings.ToLower(strings.TrimSpace(c.Query("type"))),
		Category:   strings.ToLower(strings.TrimSpace(c.Query("category"))),
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
		ReportedBy: strings.TrimSpace(c.Query("reportedBy")),
		Query:      strings.TrimSpace(c.Query("q")),
	}

	if f.Type != "" {
		if err := validators.ItemTypeValidator(f.Type); err != nil {
			return f, err
		}
	}

	if f.Category != "" {
		if err := validators.ItemCategoryValidator(f.Category); err != nil {
			return f, err
		}
	}

	if f.Status != "" {
		if err := validators.ItemStatusValidator(f.Status); err != nil {
			return f, err
		}
	}

	switch strings.ToLower(c.DefaultQuery("sort", "newest")) {
	case "newest":
	case "oldest":
		f.Oldest = true
	default:
		return f, queryError("Invalid sorting option")
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		return f, queryError("Page is not a valid integer")
	}

	if page < 0 {
		return f, queryError("Page can't be negative")
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultPageSize)))
	if err != nil {
		return f, queryError("Limit is not a valid integer")
	}

	if limit <= 0 {
		return f, queryError("Limit must be bigger than 0")
	}

	if limit > store.MaxPageSize {
		return f, queryError("Limit can't be bigger than " + strconv.Itoa(store.MaxPageSize))
	}

	f.Page, f.Limit = page, limit
	return f, nil
}
