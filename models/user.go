package models

import (
	"context"
	"html"
	"strings"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	Base
	Name          string         `gorm:"size:100;not null" json:"name" binding:"required"`
	Email         string         `gorm:"size:100;not null;uniqueIndex" json:"email" binding:"required"`
	Phone         string         `gorm:"size:20" json:"phone"`
	Password      string         `gorm:"size:255;not null" json:"-"`
	IsActive      *bool          `gorm:"not null;default:true" json:"is_active"`
	Roles         pq.StringArray `gorm:"type:text[]" json:"roles"`
	SalesTeamId   *string        `gorm:"type:uuid;index" json:"sales_team_id"`
	ActiveSidebar *string        `gorm:"type:uuid" json:"active_sidebar"`
}

type NewUser struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email" binding:"required"`
	Phone       string   `json:"phone"`
	Password    string   `json:"password" binding:"required"`
	IsActive    *bool    `json:"is_active"`
	Roles       []string `json:"roles"`
	SalesTeamId *string  `json:"sales_team_id"`
}

type LoginInfo struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

// HasRole reports whether the user carries the named role.
func (user *User) HasRole(role string) bool {
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {
	db := dbFrom(ctx)

	var user User
	if err := db.Model(&User{}).Where("lower(email) = ?", strings.ToLower(email)).Take(&user).Error; err != nil {
		return nil, utils.NewValidationError("invalid email or password")
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, utils.NewValidationError("invalid email or password")
		}
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, utils.NewValidationError("user is disabled")
	}

	tenant, _ := utils.GetTenantNameFromContext(ctx)
	token, err := utils.JwtGenerate(user.ID, tenant, user.Email, user.Roles)
	if err != nil {
		return nil, err
	}

	return &LoginInfo{Token: token, Name: user.Name, Email: user.Email}, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {
	results, err := utils.FetchAllModels[User](ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

func GetUser(ctx context.Context, id string) (*User, error) {
	result, err := utils.FetchModel[User](ctx, "User", id)
	if err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	db := dbFrom(ctx)

	if !utils.IsValidEmail(input.Email) {
		return nil, utils.NewValidationError("invalid email address")
	}

	var count int64
	if err := db.Model(&User{}).Where("lower(email) = ?", strings.ToLower(input.Email)).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.NameAlreadyExistsError{Entity: "User", Name: input.Email}
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	user := User{
		Name:        html.EscapeString(strings.TrimSpace(input.Name)),
		Email:       strings.ToLower(input.Email),
		Phone:       input.Phone,
		Password:    string(hashedPassword),
		IsActive:    isActive,
		Roles:       input.Roles,
		SalesTeamId: input.SalesTeamId,
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func UpdateUser(ctx context.Context, id string, input *NewUser) (*User, error) {
	db := dbFrom(ctx)

	user, err := utils.FetchModel[User](ctx, "User", id)
	if err != nil {
		return nil, err
	}

	if !utils.IsValidEmail(input.Email) {
		return nil, utils.NewValidationError("invalid email address")
	}
	var count int64
	if err := db.Model(&User{}).
		Where("lower(email) = ?", strings.ToLower(input.Email)).
		Not("id = ?", id).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.NameAlreadyExistsError{Entity: "User", Name: input.Email}
	}

	user.Name = html.EscapeString(strings.TrimSpace(input.Name))
	user.Email = strings.ToLower(input.Email)
	user.Phone = input.Phone
	user.SalesTeamId = input.SalesTeamId
	if input.IsActive != nil {
		user.IsActive = input.IsActive
	}
	if input.Roles != nil {
		user.Roles = input.Roles
	}

	if err := db.Model(&User{}).Where("id = ?", id).Select(
		"name", "email", "phone", "sales_team_id", "is_active", "roles",
	).Updates(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func DeleteUser(ctx context.Context, id string) (*User, error) {
	db := dbFrom(ctx)

	user, err := utils.FetchModel[User](ctx, "User", id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&OrderSplitRate{}).Where("user_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "User holds commission splits and cannot be deleted"}
	}

	if err := db.Delete(&User{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	userId := currentUserId(ctx)
	if userId == "" {
		return nil, &utils.PermissionError{Message: "user id is required"}
	}

	db := dbFrom(ctx)
	var user User
	if err := db.First(&user, "id = ?", userId).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "User", Id: userId}
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, utils.NewValidationError("old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&user).UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// SetActiveSidebar records the sidebar layout the user last selected.
func SetActiveSidebar(ctx context.Context, sidebarId *string) (*User, error) {
	userId := currentUserId(ctx)
	db := dbFrom(ctx)

	var user User
	if err := db.First(&user, "id = ?", userId).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "User", Id: userId}
	}
	if sidebarId != nil {
		if _, err := utils.FetchModel[Sidebar](ctx, "Sidebar", *sidebarId); err != nil {
			return nil, err
		}
	}
	if err := db.Model(&user).Update("active_sidebar", sidebarId).Error; err != nil {
		return nil, err
	}
	user.ActiveSidebar = sidebarId
	user.PrepareGive()
	return &user, nil
}
