package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
)

// Actor is the identity resolved from a request's bearer token.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserView is the public shape of a user; it never includes the hash.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Session struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

type AuthModule struct {
	db     *gorm.DB
	tokens *TokenIssuer
}

func NewAuthModule(db *gorm.DB, tokens *TokenIssuer) *AuthModule {
	common.RegisterValidators()
	return &AuthModule{db: db, tokens: tokens}
}

func (a *AuthModule) RegisterRoutes(group *gin.RouterGroup) {
	authGroup := group.Group("/auth")
	{
		authGroup.POST("/register", a.register)
		authGroup.POST("/login", a.login)
		authGroup.GET("/me", RequireAuth(a), a.me)
	}
}

func (a *AuthModule) Register(ctx context.Context, name, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrValidation)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: passwordHash}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return common.ErrDuplicateEmail
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, common.ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}

	return a.session(&user)
}

func (a *AuthModule) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return a.session(&user)
}

// Authenticate resolves a bearer token into the acting user. Every failure,
// including a token for a user that no longer exists, is ErrInvalidToken.
func (a *AuthModule) Authenticate(ctx context.Context, token string) (Actor, error) {
	userID, err := a.tokens.Parse(token)
	if err != nil {
		return Actor{}, err
	}

	var user models.User
	err = a.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Actor{}, fmt.Errorf("%w: user no longer exists", common.ErrInvalidToken)
	}
	if err != nil {
		return Actor{}, err
	}

	return Actor{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

func (a *AuthModule) session(user *models.User) (*Session, error) {
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: toView(user), Token: token}, nil
}

type registerInput struct {
	Name     string `json:"name" binding:"required,notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (a *AuthModule) register(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondBindError(c, err)
		return
	}

	session, err := a.Register(c.Request.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (a *AuthModule) login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		common.RespondBindError(c, err)
		return
	}

	session, err := a.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (a *AuthModule) me(c *gin.Context) {
	actor := ActorFrom(c)
	c.JSON(http.StatusOK, UserView{ID: actor.ID, Name: actor.Name, Email: actor.Email})
}

func toView(user *models.User) UserView {
	return UserView{ID: user.ID, Name: user.Name, Email: user.Email}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
