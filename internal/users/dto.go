package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/store-manager/pkg/db/models"
)

// UserDTO is the transport shape of a user.
type UserDTO struct {
	ID        int64     `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserInput holds the data required to persist a new user.
type CreateUserInput struct {
	Name  string
	Email string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (c CreateUserInput) toModel() *models.User {
	return &models.User{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
	}
}
