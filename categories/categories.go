package categories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/models"
)

type CategoryModule struct {
	db    *gorm.DB
	authn auth.Authenticator
}

func NewCategoryModule(db *gorm.DB, authn auth.Authenticator) *CategoryModule {
	common.RegisterValidators()
	return &CategoryModule{db: db, authn: authn}
}

func (m *CategoryModule) RegisterRoutes(group *gin.RouterGroup) {
	categoryGroup := group.Group("/categories")
	{
		categoryGroup.GET("", m.list)
		categoryGroup.POST("", auth.RequireAuth(m.authn), m.create)
		categoryGroup.PUT("/:id", auth.RequireAuth(m.authn), m.update)
		categoryGroup.DELETE("/:id", auth.RequireAuth(m.authn), m.delete)
	}
}

func (m *CategoryModule) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := m.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (m *CategoryModule) Create(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	category := models.Category{
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(description),
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, name, ""); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, categoryExists()
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Update applies only the fields that are present. A nil name or description
// leaves the stored value untouched.
func (m *CategoryModule) Update(ctx context.Context, id string, name, description *string) (*models.Category, error) {
	var category models.Category
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("category %w", common.ErrNotFound)
			}
			return err
		}

		updates := map[string]interface{}{}
		if name != nil {
			trimmed := strings.TrimSpace(*name)
			if trimmed == "" {
				return fmt.Errorf("%w: name must not be empty", common.ErrValidation)
			}
			if err := ensureNameFree(tx, trimmed, category.ID); err != nil {
				return err
			}
			updates["name"] = trimmed
			updates["slug"] = slug.Make(trimmed)
		}
		if description != nil {
			updates["description"] = strings.TrimSpace(*description)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&category, "id = ?", category.ID).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, categoryExists()
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete refuses while any post references the category. The reference count
// and the delete share one transaction; post creation checks its category in
// its own transaction, so the two serialize on the store.
func (m *CategoryModule) Delete(ctx context.Context, id string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("category %w", common.ErrNotFound)
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.Post{}).Where("category_id = ?", category.ID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: cannot delete category with associated posts", common.ErrHasDependents)
		}

		result := tx.Delete(&models.Category{}, "id = ?", category.ID)
		if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: cannot delete category with associated posts", common.ErrHasDependents)
		}
		return result.Error
	})
}

func ensureNameFree(tx *gorm.DB, name, exceptID string) error {
	query := tx.Model(&models.Category{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return categoryExists()
	}
	return nil
}

func categoryExists() error {
	return fmt.Errorf("category %w", common.ErrDuplicateName)
}

type createInput struct {
	Name        string `json:"name" binding:"required,notblank"`
	Description string `json:"description"`
}

type updateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (m *CategoryModule) list(c *gin.Context) {
	categories, err := m.List(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (m *CategoryModule) create(c *gin.Context) {
	var input createInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondBindError(c, err)
		return
	}

	category, err := m.Create(c.Request.Context(), input.Name, input.Description)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (m *CategoryModule) update(c *gin.Context) {
	var input updateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondBindError(c, err)
		return
	}

	category, err := m.Update(c.Request.Context(), c.Param("id"), input.Name, input.Description)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (m *CategoryModule) delete(c *gin.Context) {
	if err := m.Delete(c.Request.Context(), c.Param("id")); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category removed"})
}
