package directives

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// retrieve user from redis or db
func getUser(ctx context.Context, tenant string, userId string) (*models.User, error) {
	var user models.User
	cacheKey := "User:" + tenant + ":" + userId
	exists, err := config.GetRedisObject(cacheKey, &user)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.DBFromContext(ctx)
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userId).Take(&user).Error; err != nil {
			return nil, err
		}

		tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
		if err != nil {
			tokenLifespan = 24
		}
		if err := config.SetRedisObject(cacheKey, &user, time.Duration(tokenLifespan)*time.Hour); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// Auth gates resolvers behind an authenticated user. Role and record-level
// checks happen in the models layer; the directive verifies the session is
// live and refreshes the context with the user's current roles.
func Auth(ctx context.Context, obj interface{}, next graphql.Resolver) (interface{}, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, &gqlerror.Error{
			Message: "Access Denied",
		}
	}

	tenant, _ := utils.GetTenantNameFromContext(ctx)
	user, err := getUser(ctx, tenant, userId)
	if err != nil {
		return nil, &gqlerror.Error{
			Message: "Access Denied",
		}
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, &gqlerror.Error{
			Message: "User is disabled",
		}
	}

	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetRolesInContext(ctx, user.Roles)
	ctx = utils.SetIsAdminInContext(ctx, user.HasRole("Admin"))

	return next(ctx)
}
