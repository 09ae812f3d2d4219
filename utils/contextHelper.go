package utils

import (
	"context"

	"github.com/mmdatafocus/workorder_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyUserRole      = appctx.ContextKeyUserRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetUserRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyUserRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// Actor is the acting user resolved by the session middleware.
type Actor struct {
	Id       int
	Name     string
	Username string
	Role     string
}

// GetActorFromContext fails with Unauthorized when no identity is attached.
func GetActorFromContext(ctx context.Context) (Actor, error) {
	userId, ok := GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return Actor{}, NewUnauthorized("no authenticated user")
	}
	role, ok := GetUserRoleFromContext(ctx)
	if !ok || role == "" {
		return Actor{}, NewUnauthorized("user %d has no role", userId)
	}
	name, _ := GetUserNameFromContext(ctx)
	username, _ := GetUsernameFromContext(ctx)
	return Actor{Id: userId, Name: name, Username: username, Role: role}, nil
}

// WithActor attaches an identity to ctx; used by the session middleware, tools and tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = SetUserIdInContext(ctx, actor.Id)
	ctx = SetUserNameInContext(ctx, actor.Name)
	ctx = SetUsernameInContext(ctx, actor.Username)
	return SetUserRoleInContext(ctx, actor.Role)
}
