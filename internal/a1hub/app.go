package a1hub

import (
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// App bundles the clients of the API process.
type App struct {
	Rdb  *redis.Client
	Db   *gorm.DB
	Aqc  *asynq.Client
	Aqi  *asynq.Inspector
	Plan *CommissionPlan
}

// AppEvents bundles the clients of the activation event consumer.
type AppEvents struct {
	Rdb  *redis.Client
	Db   *gorm.DB
	Aqs  *asynq.Server
	Aqc  *asynq.Client
	Plan *CommissionPlan
}

func Init() *App {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	plan, err := LoadPlan(redisClient)
	if err != nil {
		panic(err)
	}
	return &App{
		Rdb:  redisClient,
		Db:   db,
		Aqc:  setupAsynqClient(),
		Aqi:  setupAsynqInspector(),
		Plan: plan,
	}
}

func InitEvents() *AppEvents {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	plan, err := LoadPlan(redisClient)
	if err != nil {
		panic(err)
	}
	return &AppEvents{
		Rdb:  redisClient,
		Db:   db,
		Aqs:  setupAsynqServer(),
		Aqc:  setupAsynqClient(),
		Plan: plan,
	}
}

func setupRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}

func setupDb() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect to the db")
	}
	err = db.AutoMigrate(
		&Member{},
		&TreeEdge{},
		&Commission{},
		&Reward{},
		&Payment{},
	)
	if err != nil {
		panic("failed to run migrations")
	}
	return db
}

func setupAsynqClient() *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func setupAsynqInspector() *asynq.Inspector {
	return asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func setupAsynqServer() *asynq.Server {
	concurency, err := strconv.Atoi(os.Getenv("EVENTS_SCALE"))
	if err != nil {
		concurency = 10
	}
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		asynq.Config{
			Concurrency: concurency,
			Queues: map[string]int{
				"activation": 5,
				"retry":      1,
			},
		},
	)
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")

	if "test" != env {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}
