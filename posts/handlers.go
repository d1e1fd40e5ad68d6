package posts

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"blogapi/auth"
	"blogapi/common"
)

func (m *PostModule) RegisterRoutes(group *gin.RouterGroup) {
	postGroup := group.Group("/posts")
	{
		postGroup.GET("", m.list)
		postGroup.GET("/search", m.search)
		postGroup.GET("/:id", m.get)
		postGroup.POST("", auth.RequireAuth(m.authn), m.create)
		postGroup.PUT("/:id", auth.RequireAuth(m.authn), m.update)
		postGroup.DELETE("/:id", auth.RequireAuth(m.authn), m.delete)
		postGroup.POST("/:id/comments", auth.RequireAuth(m.authn), m.addComment)
	}
}

// postRequest is the union of the JSON and multipart shapes. Absent fields
// stay nil so updates only touch what the client sent.
type postRequest struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Format        *string   `json:"format"`
	Category      *string   `json:"category"`
	Excerpt       *string   `json:"excerpt"`
	FeaturedImage *string   `json:"featuredImage"`
	Slug          *string   `json:"slug"`
	Tags          *[]string `json:"tags"`
	IsPublished   *bool     `json:"isPublished"`

	image *multipart.FileHeader
}

type commentInput struct {
	Content string `json:"content" binding:"required,notblank"`
}

func (r postRequest) input() PostInput {
	return PostInput{
		Title:         deref(r.Title),
		Content:       deref(r.Content),
		Format:        deref(r.Format),
		Category:      deref(r.Category),
		Excerpt:       deref(r.Excerpt),
		FeaturedImage: deref(r.FeaturedImage),
		Slug:          deref(r.Slug),
		Tags:          derefTags(r.Tags),
		IsPublished:   r.IsPublished != nil && *r.IsPublished,
		Image:         r.image,
	}
}

func (r postRequest) patch() PostPatch {
	return PostPatch{
		Title:         r.Title,
		Content:       r.Content,
		Format:        r.Format,
		Category:      r.Category,
		Excerpt:       r.Excerpt,
		FeaturedImage: r.FeaturedImage,
		Slug:          r.Slug,
		Tags:          r.Tags,
		IsPublished:   r.IsPublished,
		Image:         r.image,
	}
}

func (m *PostModule) list(c *gin.Context) {
	query := ListQuery{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if query.Search == "" {
		query.Search = c.Query("q")
	}
	if raw, ok := c.GetQuery("published"); ok {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			common.RespondError(c, fmt.Errorf("%w: published must be true or false", common.ErrValidation))
			return
		}
		query.Published = &published
	}

	result, err := m.List(c.Request.Context(), query)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": result.Items,
		"meta": gin.H{"total": result.Total, "page": result.Page, "limit": result.Limit},
	})
}

func (m *PostModule) search(c *gin.Context) {
	posts, err := m.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (m *PostModule) get(c *gin.Context) {
	post, err := m.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (m *PostModule) create(c *gin.Context) {
	req, err := bindPostRequest(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	post, err := m.Create(c.Request.Context(), auth.ActorFrom(c), req.input())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (m *PostModule) update(c *gin.Context) {
	req, err := bindPostRequest(c)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	post, err := m.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), req.patch())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (m *PostModule) delete(c *gin.Context) {
	if err := m.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post removed"})
}

func (m *PostModule) addComment(c *gin.Context) {
	var input commentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondBindError(c, err)
		return
	}

	post, err := m.AddComment(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), input.Content)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func bindPostRequest(c *gin.Context) (postRequest, error) {
	var req postRequest
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	field := func(name string) *string {
		if values, ok := form.Value[name]; ok && len(values) > 0 {
			return &values[0]
		}
		return nil
	}

	req.Title = field("title")
	req.Content = field("content")
	req.Format = field("format")
	req.Category = field("category")
	req.Excerpt = field("excerpt")
	req.FeaturedImage = field("featuredImage")
	req.Slug = field("slug")
	if raw := field("tags"); raw != nil {
		tags, err := parseTags(*raw)
		if err != nil {
			return req, err
		}
		req.Tags = &tags
	}
	if raw := field("isPublished"); raw != nil {
		published, err := strconv.ParseBool(strings.TrimSpace(*raw))
		if err != nil {
			return req, fmt.Errorf("%w: isPublished must be true or false", common.ErrValidation)
		}
		req.IsPublished = &published
	}

	if files := form.File["featuredImage"]; len(files) > 0 {
		req.image = files[0]
	}
	return req, nil
}

// parseTags accepts either a JSON array string or a comma-separated list.
func parseTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("%w: tags must be a JSON array of strings", common.ErrValidation)
		}
		return tags, nil
	}
	return strings.Split(raw, ","), nil
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTags(tags *[]string) []string {
	if tags == nil {
		return nil
	}
	return *tags
}
