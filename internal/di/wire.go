//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"chatsync/internal/chat/handler"
	"chatsync/internal/chat/repository"
	"chatsync/internal/chat/service"
	"chatsync/internal/dbmongo"
	"chatsync/internal/dbmysql"
	"chatsync/internal/user"
)

// InitializeApplication assembles the full dependency graph. The real body is
// generated into wire_gen.go.
func InitializeApplication() (*Application, error) {
	wire.Build(
		ProvideConfig,
		dbmysql.NewMySQL,
		dbmongo.NewMongoConnection,
		dbmongo.NewJournalStore,
		ProvideHub,
		ProvideRedisClient,
		ProvideBridge,
		ProvidePublisher,
		ProvideTokenManager,
		repository.NewChatRepository,
		user.NewUserRepository,
		user.NewUserService,
		service.NewChatService,
		handler.NewChatHandler,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
