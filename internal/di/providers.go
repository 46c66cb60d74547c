package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chatsync/internal/chat/handler"
	"chatsync/internal/chat/service"
	"chatsync/internal/common"
	"chatsync/internal/config"
	"chatsync/internal/dbmongo"
	"chatsync/internal/feed"
)

// Application is the assembled service: everything main needs to run and to
// shut down cleanly.
type Application struct {
	Config  *config.Config
	DB      *gorm.DB
	Mongo   *dbmongo.MongoClient
	Hub     *feed.Hub
	Bridge  *feed.Bridge
	Tokens  *common.TokenManager
	Chats   service.ChatService
	Handler *handler.ChatHandler
}

func ProvideConfig() *config.Config {
	return config.LoadConfig()
}

func ProvideHub() *feed.Hub {
	return feed.NewHub()
}

// ProvideRedisClient returns nil when no Redis address is configured; the
// feed then runs in-process only.
func ProvideRedisClient(cnf *config.Config) *redis.Client {
	if cnf.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cnf.Redis.Addr})
}

func ProvideBridge(client *redis.Client, hub *feed.Hub, cnf *config.Config) *feed.Bridge {
	if client == nil {
		return nil
	}
	return feed.NewBridge(client, hub, cnf.Redis.Channel)
}

// ProvidePublisher picks the bridge when Redis is configured so events reach
// every instance, and the bare hub otherwise.
func ProvidePublisher(bridge *feed.Bridge, hub *feed.Hub) feed.Publisher {
	if bridge != nil {
		return bridge
	}
	return hub
}

func ProvideTokenManager(cnf *config.Config) *common.TokenManager {
	return common.NewTokenManager(cnf.Session.Secret, cnf.Session.Issuer)
}
