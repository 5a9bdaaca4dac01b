package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// DebugAllowedIPs restricts the testing-only reset endpoints. Empty allows any IP.
	DebugAllowedIPs []string `mapstructure:"debug_allowed_ips"`
}

type CatalogConfig struct {
	// DataPath points at a directory of catalog JSON files. Empty uses the built-in content.
	DataPath string `mapstructure:"data_path"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
	PlayerTTL       time.Duration `mapstructure:"player_ttl"`
	CatalogTTL      time.Duration `mapstructure:"catalog_ttl"`
}

// GameConfig holds the tunable game rules.
type GameConfig struct {
	MinVitalsToStart      float64       `mapstructure:"min_vitals_to_start"`
	AutoReturnWeightRatio float64       `mapstructure:"auto_return_weight_ratio"`
	AutoReturnVitalRatio  float64       `mapstructure:"auto_return_vital_ratio"`
	CollectionSuccessRate float64       `mapstructure:"collection_success_rate"`
	VitalDecayPerCollect  float64       `mapstructure:"vital_decay_per_collect"`
	DistanceStep          float64       `mapstructure:"distance_step"`
	TravelSeconds         int           `mapstructure:"travel_seconds"`
	CoinRewardRatio       float64       `mapstructure:"coin_reward_ratio"`
	ExpeditionRetention   time.Duration `mapstructure:"expedition_retention"`
	ExpeditionSweep       time.Duration `mapstructure:"expedition_sweep"`
	ExpeditionStore       string        `mapstructure:"expedition_store"` // db | redis
	MaxActiveQuests       int           `mapstructure:"max_active_quests"`
	StartHunger           float64       `mapstructure:"start_hunger"`
	StartThirst           float64       `mapstructure:"start_thirst"`
	MaxInventoryWeight    float64       `mapstructure:"max_inventory_weight"`
	StartCoins            int64         `mapstructure:"start_coins"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins restricts WebSocket origins. Empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DefaultGame returns the game rules used when no config file overrides them.
func DefaultGame() GameConfig {
	return GameConfig{
		MinVitalsToStart:      30,
		AutoReturnWeightRatio: 0.9,
		AutoReturnVitalRatio:  0.1,
		CollectionSuccessRate: 0.85,
		VitalDecayPerCollect:  0.5,
		DistanceStep:          50,
		TravelSeconds:         5,
		CoinRewardRatio:       0.1,
		ExpeditionRetention:   5 * time.Minute,
		ExpeditionSweep:       time.Minute,
		ExpeditionStore:       "db",
		MaxActiveQuests:       5,
		StartHunger:           100,
		StartThirst:           100,
		MaxInventoryWeight:    50,
		StartCoins:            0,
	}
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	g := DefaultGame()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/survivalcamp.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.player_ttl", "30s")
	v.SetDefault("cache.catalog_ttl", "15m")
	v.SetDefault("game.min_vitals_to_start", g.MinVitalsToStart)
	v.SetDefault("game.auto_return_weight_ratio", g.AutoReturnWeightRatio)
	v.SetDefault("game.auto_return_vital_ratio", g.AutoReturnVitalRatio)
	v.SetDefault("game.collection_success_rate", g.CollectionSuccessRate)
	v.SetDefault("game.vital_decay_per_collect", g.VitalDecayPerCollect)
	v.SetDefault("game.distance_step", g.DistanceStep)
	v.SetDefault("game.travel_seconds", g.TravelSeconds)
	v.SetDefault("game.coin_reward_ratio", g.CoinRewardRatio)
	v.SetDefault("game.expedition_retention", g.ExpeditionRetention.String())
	v.SetDefault("game.expedition_sweep", g.ExpeditionSweep.String())
	v.SetDefault("game.expedition_store", g.ExpeditionStore)
	v.SetDefault("game.max_active_quests", g.MaxActiveQuests)
	v.SetDefault("game.start_hunger", g.StartHunger)
	v.SetDefault("game.start_thirst", g.StartThirst)
	v.SetDefault("game.max_inventory_weight", g.MaxInventoryWeight)
	v.SetDefault("game.start_coins", g.StartCoins)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
