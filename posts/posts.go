package posts

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/models"
	"blogapi/uploads"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	searchLimit  = 20
)

// reservedSlugs collide with static routes under /posts.
var reservedSlugs = map[string]bool{"search": true}

// ImageStore persists featured images. uploads.Store implements it.
type ImageStore interface {
	SaveImage(fh *multipart.FileHeader) (string, error)
	Remove(publicPath string)
}

type PostModule struct {
	db     *gorm.DB
	authn  auth.Authenticator
	images ImageStore
}

func NewPostModule(db *gorm.DB, authn auth.Authenticator, images ImageStore) *PostModule {
	common.RegisterValidators()
	return &PostModule{db: db, authn: authn, images: images}
}

// PostInput holds the fields for a new post. Image, when set, is stored
// before the post row is written.
type PostInput struct {
	Title         string
	Content       string
	Format        string
	Category      string
	Excerpt       string
	FeaturedImage string
	Slug          string
	Tags          []string
	IsPublished   bool
	Image         *multipart.FileHeader
}

// PostPatch is a partial update: nil fields are left untouched.
type PostPatch struct {
	Title         *string
	Content       *string
	Format        *string
	Category      *string
	Excerpt       *string
	FeaturedImage *string
	Slug          *string
	Tags          *[]string
	IsPublished   *bool
	Image         *multipart.FileHeader
}

type ListQuery struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	Published *bool
}

type ListResult struct {
	Items []models.Post
	Total int64
	Page  int
	Limit int
}

func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
}

func (m *PostModule) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.normalize()

	filter := m.db.WithContext(ctx).Model(&models.Post{})
	if q.Search != "" {
		filter = whereContains(filter, q.Search)
	}
	if q.Category != "" {
		filter = filter.Where("category_id = ?", q.Category)
	}
	if q.Published != nil {
		filter = filter.Where("is_published = ?", *q.Published)
	}

	var total int64
	if err := filter.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	items := []models.Post{}
	err := withRelations(filter.Session(&gorm.Session{})).
		Order("created_at DESC").
		Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Search is the unpaginated convenience lookup: at most 20 newest matches.
func (m *PostModule) Search(ctx context.Context, text string) ([]models.Post, error) {
	query := m.db.WithContext(ctx).Model(&models.Post{})
	if text = strings.TrimSpace(text); text != "" {
		query = whereContains(query, text)
	}

	items := []models.Post{}
	err := withRelations(query).
		Order("created_at DESC").
		Order("id DESC").
		Limit(searchLimit).
		Find(&items).Error
	return items, err
}

// Get resolves either a post id or a slug.
func (m *PostModule) Get(ctx context.Context, idOrSlug string) (*models.Post, error) {
	return findPost(withRelations(m.db.WithContext(ctx)), idOrSlug)
}

func (m *PostModule) Create(ctx context.Context, actor auth.Actor, input PostInput) (*models.Post, error) {
	if err := validateRequired(input); err != nil {
		return nil, err
	}
	content, err := formatContent(input.Content, input.Format)
	if err != nil {
		return nil, err
	}
	if isStoredUpload(input.FeaturedImage) {
		return nil, errForeignUpload()
	}

	post := models.Post{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(input.Title),
		Content:       content,
		Excerpt:       input.Excerpt,
		FeaturedImage: input.FeaturedImage,
		Tags:          datatypes.JSONSlice[string](normalizeTags(input.Tags)),
		CategoryID:    strings.TrimSpace(input.Category),
		AuthorID:      actor.ID,
		IsPublished:   input.IsPublished,
		Slug:          strings.TrimSpace(input.Slug),
	}
	if reservedSlugs[post.Slug] {
		return nil, fmt.Errorf("%w: slug %q is reserved", common.ErrValidation, post.Slug)
	}
	if post.Slug == "" {
		post.Slug = generateSlug(post.Title)
	}
	if post.Slug == "" || reservedSlugs[post.Slug] {
		post.Slug = post.ID
	}

	var uploaded string
	if input.Image != nil {
		if uploaded, err = m.saveImage(input.Image); err != nil {
			return nil, err
		}
		post.FeaturedImage = uploaded
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCategory(tx, post.CategoryID); err != nil {
			return err
		}
		if err := ensureSlugFree(tx, post.Slug, ""); err != nil {
			return err
		}
		return translateWriteError(tx.Create(&post).Error)
	})
	if err != nil {
		m.removeImage(uploaded)
		return nil, err
	}

	return m.Get(ctx, post.ID)
}

func (m *PostModule) Update(ctx context.Context, actor auth.Actor, id string, patch PostPatch) (*models.Post, error) {
	updates, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}

	var uploaded string
	if patch.Image != nil {
		if uploaded, err = m.saveImage(patch.Image); err != nil {
			return nil, err
		}
		updates["featured_image"] = uploaded
	}

	var replaced string
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if err := auth.Authorize(actor, post, auth.ActionUpdate); err != nil {
			return err
		}
		// A stored upload may only be named by the post that already holds it.
		if image, ok := updates["featured_image"].(string); ok && image != uploaded &&
			image != post.FeaturedImage && isStoredUpload(image) {
			return errForeignUpload()
		}
		if category, ok := updates["category_id"].(string); ok {
			if err := ensureCategory(tx, category); err != nil {
				return err
			}
		}
		if slug, ok := updates["slug"].(string); ok {
			if err := ensureSlugFree(tx, slug, post.ID); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}

		// The author predicate keeps the write a no-op for anyone but the
		// owner even if ownership were to change between read and write.
		result := tx.Model(&models.Post{}).
			Where("id = ? AND author_id = ?", post.ID, actor.ID).
			Updates(updates)
		if err := translateWriteError(result.Error); err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return resolveMiss(tx, post.ID, auth.ActionUpdate)
		}
		if _, ok := updates["featured_image"]; ok && post.FeaturedImage != updates["featured_image"] {
			replaced = post.FeaturedImage
		}
		return nil
	})
	if err != nil {
		m.removeImage(uploaded)
		return nil, err
	}
	m.releaseImage(ctx, replaced)

	return m.Get(ctx, id)
}

// Delete removes the post and its comments in one transaction.
func (m *PostModule) Delete(ctx context.Context, actor auth.Actor, id string) error {
	var image string
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if err := auth.Authorize(actor, post, auth.ActionDelete); err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND author_id = ?", post.ID, actor.ID).Delete(&models.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return resolveMiss(tx, post.ID, auth.ActionDelete)
		}
		image = post.FeaturedImage
		return nil
	})
	if err != nil {
		return err
	}
	m.releaseImage(ctx, image)
	return nil
}

func (m *PostModule) saveImage(fh *multipart.FileHeader) (string, error) {
	if m.images == nil {
		return "", fmt.Errorf("%w: uploads are disabled", common.ErrUploadRejected)
	}
	return m.images.SaveImage(fh)
}

func (m *PostModule) removeImage(publicPath string) {
	if publicPath != "" && m.images != nil {
		m.images.Remove(publicPath)
	}
}

// releaseImage removes a stored file once no post references it.
func (m *PostModule) releaseImage(ctx context.Context, publicPath string) {
	if publicPath == "" || m.images == nil {
		return
	}
	var refs int64
	err := m.db.WithContext(ctx).Model(&models.Post{}).Where("featured_image = ?", publicPath).Count(&refs).Error
	if err != nil || refs > 0 {
		return
	}
	m.images.Remove(publicPath)
}

// isStoredUpload reports whether p points into the upload store.
func isStoredUpload(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return false
	}
	return strings.HasPrefix(path.Clean("/"+p), uploads.PublicPrefix+"/")
}

func errForeignUpload() error {
	return fmt.Errorf("%w: featuredImage must be uploaded as a file", common.ErrValidation)
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Category").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Comments.User")
}

func findPost(db *gorm.DB, idOrSlug string) (*models.Post, error) {
	var post models.Post
	if uuid.Validate(idOrSlug) == nil {
		err := db.Session(&gorm.Session{}).First(&post, "id = ?", idOrSlug).Error
		if err == nil {
			return &post, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := db.Session(&gorm.Session{}).First(&post, "slug = ?", idOrSlug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func findByID(tx *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	err := tx.First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("post %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// resolveMiss explains a guarded write that matched no row.
func resolveMiss(tx *gorm.DB, id string, action auth.Action) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("post %w", common.ErrNotFound)
	}
	return fmt.Errorf("%w to %s this post", common.ErrForbidden, action)
}

func ensureCategory(tx *gorm.DB, categoryID string) error {
	if categoryID == "" {
		return fmt.Errorf("%w: category is required", common.ErrValidation)
	}
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return common.ErrInvalidCategory
	}
	return nil
}

func ensureSlugFree(tx *gorm.DB, slug, exceptID string) error {
	query := tx.Model(&models.Post{}).Where("slug = ?", slug)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("post %w", common.ErrDuplicateSlug)
	}
	return nil
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("post %w", common.ErrDuplicateSlug)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrInvalidCategory
	default:
		return err
	}
}

func validateRequired(input PostInput) error {
	var missing []string
	if strings.TrimSpace(input.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(input.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", common.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func patchColumns(patch PostPatch) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", common.ErrValidation)
		}
		updates["title"] = title
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, fmt.Errorf("%w: content must not be empty", common.ErrValidation)
		}
		format := ""
		if patch.Format != nil {
			format = *patch.Format
		}
		content, err := formatContent(*patch.Content, format)
		if err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	if patch.Category != nil {
		updates["category_id"] = strings.TrimSpace(*patch.Category)
	}
	if patch.Excerpt != nil {
		updates["excerpt"] = *patch.Excerpt
	}
	if patch.FeaturedImage != nil {
		updates["featured_image"] = *patch.FeaturedImage
	}
	if patch.Slug != nil {
		slug := strings.TrimSpace(*patch.Slug)
		if slug == "" {
			return nil, fmt.Errorf("%w: slug must not be empty", common.ErrValidation)
		}
		if reservedSlugs[slug] {
			return nil, fmt.Errorf("%w: slug %q is reserved", common.ErrValidation, slug)
		}
		updates["slug"] = slug
	}
	if patch.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](normalizeTags(*patch.Tags))
	}
	if patch.IsPublished != nil {
		updates["is_published"] = *patch.IsPublished
	}
	return updates, nil
}

func formatContent(content, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatHTML:
		return content, nil
	case FormatMarkdown:
		html, err := renderMarkdown(content)
		if err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return html, nil
	default:
		return "", fmt.Errorf("%w: unknown content format %q", common.ErrValidation, format)
	}
}

// normalizeTags trims tags and drops blanks and repeats, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// whereContains adds a case-insensitive substring match on title or content.
func whereContains(db *gorm.DB, text string) *gorm.DB {
	like := "%" + escapeLike(strings.ToLower(text)) + "%"
	return db.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", like, like)
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
