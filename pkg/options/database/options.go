// Package database provides relational database options supporting both
// MySQL and embedded SQLite.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/pflag"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/advisor-x/pkg/options"
)

// Driver names accepted by Options.Driver.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Options defines configuration for the relational store. SQLite is the
// development default so the service runs without external dependencies;
// production deployments switch to MySQL.
type Options struct {
	Driver string `json:"driver" mapstructure:"driver"`

	// SQLite
	Path string `json:"path" mapstructure:"path"`

	// MySQL
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"password" mapstructure:"password"`
	Database              string        `json:"database" mapstructure:"database"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	LogLevel              int           `json:"log-level" mapstructure:"log-level"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		Path:                  "advisor.db",
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		Database:              "advisor",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: 10 * time.Second,
		LogLevel:              1, // Silent
	}
}

// Validate implements options.IOptions.
func (o *Options) Validate() []error {
	var errs []error

	switch o.Driver {
	case DriverSQLite:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("sqlite path must not be empty"))
		}
	case DriverMySQL:
		// 如果 CLI 参数为空，从环境变量读取
		if o.Password == "" {
			o.Password = os.Getenv("MYSQL_PASSWORD")
		}
		if o.Database == "" {
			errs = append(errs, fmt.Errorf("mysql database must not be empty"))
		}
		if o.Port < 1 || o.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid mysql port %d", o.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", o.Driver))
	}
	return errs
}

// AddFlags implements options.IOptions.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, options.FlagName("driver", prefixes...), o.Driver, "Database driver: sqlite or mysql.")
	fs.StringVar(&o.Path, options.FlagName("path", prefixes...), o.Path, "SQLite database file path, ':memory:' for in-memory.")
	fs.StringVar(&o.Host, options.FlagName("host", prefixes...), o.Host, "MySQL host.")
	fs.IntVar(&o.Port, options.FlagName("port", prefixes...), o.Port, "MySQL port.")
	fs.StringVar(&o.Username, options.FlagName("username", prefixes...), o.Username, "MySQL username.")
	fs.StringVar(&o.Password, options.FlagName("password", prefixes...), o.Password, "MySQL password (prefer MYSQL_PASSWORD env var).")
	fs.StringVar(&o.Database, options.FlagName("database", prefixes...), o.Database, "MySQL database name.")
	fs.IntVar(&o.MaxIdleConnections, options.FlagName("max-idle-connections", prefixes...), o.MaxIdleConnections, "Max idle connections.")
	fs.IntVar(&o.MaxOpenConnections, options.FlagName("max-open-connections", prefixes...), o.MaxOpenConnections, "Max open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, options.FlagName("max-connection-life-time", prefixes...), o.MaxConnectionLifeTime, "Max connection lifetime.")
	fs.IntVar(&o.LogLevel, options.FlagName("log-level", prefixes...), o.LogLevel, "GORM log level: 1 Silent, 2 Error, 3 Warn, 4 Info.")
}

// DSN returns the MySQL DSN.
func (o *Options) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		o.Username, o.Password, o.Host, o.Port, o.Database)
}

// NewDB opens the configured database.
func (o *Options) NewDB() (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.LogLevel(o.LogLevel)),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch o.Driver {
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(o.Path), cfg)
	case DriverMySQL:
		db, err = gorm.Open(mysql.Open(o.DSN()), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", o.Driver)
	}
	if err != nil {
		return nil, err
	}

	if o.Driver == DriverMySQL {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxIdleConns(o.MaxIdleConnections)
		sqlDB.SetMaxOpenConns(o.MaxOpenConnections)
		sqlDB.SetConnMaxLifetime(o.MaxConnectionLifeTime)
	}
	return db, nil
}
