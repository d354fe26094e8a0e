package transcript

import (
	"fmt"
	"strings"

	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

// Archive backends selectable through TRANSCRIPT_ARCHIVE
const (
	BackendOff    = "off"
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// DSN builds the MySQL connection string from configuration
func DSN(cfg *utils.Config) string {
	dbConfig := mysql.Config{
		User:                 cfg.Get("MYSQL_USER"),
		Passwd:               cfg.Get("MYSQL_ROOT_PASSWORD"),
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:               cfg.Get("MYSQL_DATABASE"),
		ParseTime:            true,
		AllowNativePasswords: true,
	}

	return dbConfig.FormatDSN()
}

// Open creates the archive selected by TRANSCRIPT_ARCHIVE. A nil archive
// with a nil error means archiving is disabled
func Open(cfg *utils.Config) (Archive, error) {
	backend := strings.ToLower(cfg.GetWithDefault("TRANSCRIPT_ARCHIVE", BackendOff))

	switch backend {
	case BackendOff, "false", "none":
		return nil, nil
	case BackendMemory:
		return NewInMemoryArchive(), nil
	case BackendMySQL:
		if cfg.Get("MYSQL_DATABASE") == "" {
			return nil, fmt.Errorf("MYSQL_DATABASE not set in environment")
		}
		archive, err := NewMySqlArchive(DSN(cfg))
		if err != nil {
			return nil, err
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("unknown transcript archive backend %q", backend)
	}
}
