package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	errs "github.com/techagentng/sakany/errors"
	"github.com/techagentng/sakany/models"
	"github.com/techagentng/sakany/server/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleCreateProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.PropertyRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		property, err := s.PropertyService.CreateProperty(currentUser(c), &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property submitted for review", http.StatusCreated, property, nil)
	}
}

func (s *Server) handleListProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := propertyFilterFromQuery(c)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		properties, total, err := s.PropertyService.ListProperties(filter)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "properties retrieved successfully", http.StatusOK, gin.H{
			"properties": properties,
			"total":      total,
			"page":       filter.Page,
			"limit":      filter.Limit,
		}, nil)
	}
}

func (s *Server) handleFeaturedProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		properties, err := s.PropertyService.FeaturedProperties()
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "featured properties retrieved successfully", http.StatusOK, properties, nil)
	}
}

func (s *Server) handleGetProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		property, err := s.PropertyService.GetProperty(id, currentUser(c))
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property retrieved successfully", http.StatusOK, property, nil)
	}
}

func (s *Server) handleMyProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		properties, err := s.PropertyService.ListUserProperties(currentUser(c).ID)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "properties retrieved successfully", http.StatusOK, properties, nil)
	}
}

func (s *Server) handleUpdateProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var request models.PropertyRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		property, err := s.PropertyService.UpdateProperty(id, currentUser(c), &request)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property updated successfully", http.StatusOK, property, nil)
	}
}

func (s *Server) handleUpdatePropertyStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var request models.PropertyStatusRequest
		if err := decode(c, &request); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		property, err := s.PropertyService.UpdateStatus(id, currentUser(c), request.Status)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property status updated", http.StatusOK, property, nil)
	}
}

func (s *Server) handleDeleteProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := s.PropertyService.DeleteProperty(c.Request.Context(), id, currentUser(c)); err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "property deleted successfully", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleUploadPropertyImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors.Wrap(errs.ErrBadRequest, "expected multipart form"))
			return
		}
		files := form.File["images"]
		if len(files) == 0 {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.Validation("no images provided"))
			return
		}

		property, err := s.PropertyService.AddImages(c.Request.Context(), id, currentUser(c), files)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "images uploaded successfully", http.StatusOK, property.Images, nil)
	}
}

func (s *Server) handleDeletePropertyImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.Validation("invalid image index"))
			return
		}
		property, err := s.PropertyService.RemoveImage(c.Request.Context(), id, currentUser(c), index)
		if err != nil {
			response.HandleErrors(c, err)
			return
		}
		response.JSON(c, "image removed successfully", http.StatusOK, property, nil)
	}
}

// paramID parses a positive numeric path parameter, replying 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.JSON(c, "", http.StatusBadRequest, nil, errs.Validation("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func propertyFilterFromQuery(c *gin.Context) (models.PropertyFilter, error) {
	filter := models.PropertyFilter{
		Location: c.Query("location"),
		Type:     c.Query("type"),
		Page:     1,
		Limit:    defaultPageSize,
	}

	var err error
	if filter.MinPrice, err = queryInt64(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryInt64(c, "max_price"); err != nil {
		return filter, err
	}
	bedrooms, err := queryInt64(c, "bedrooms")
	if err != nil {
		return filter, err
	}
	filter.Bedrooms = int(bedrooms)
	if filter.ForSale, err = queryBool(c, "for_sale"); err != nil {
		return filter, err
	}
	if filter.ForRent, err = queryBool(c, "for_rent"); err != nil {
		return filter, err
	}

	page, err := queryInt64(c, "page")
	if err != nil {
		return filter, err
	}
	if page > 0 {
		filter.Page = int(page)
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return filter, err
	}
	if limit > 0 {
		filter.Limit = int(limit)
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return filter, nil
}

func queryInt64(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errs.Validation("invalid " + key)
	}
	return v, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.Validation("invalid " + key)
	}
	return &v, nil
}
