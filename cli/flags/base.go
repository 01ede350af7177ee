package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag names.
const (
	logLevel    = "logLevel"
	logFormat   = "logFormat"
	logFilePath = "logFilePath"
	configPath  = "configPath"
)

// global base flags
var (
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	LogFilePath string
)

// tribunal server flags
var (
	Port      uint64
	DBPath    string
	Admin     string
	Quorum    uint64
	MinJurors uint64
	OracleURL string
)

// client flags
var ServerAddr string

func SetBaseFlags(cmd *cobra.Command) {
	ConfigPathFlag(cmd)
	LogLevelFlag(cmd)
	LogFormatFlag(cmd)
	LogFilePathFlag(cmd)
}

// BindBaseFlags binds flags to yaml config parameters
func BindBaseFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlag("configPath", cmd.PersistentFlags().Lookup("configPath")); err != nil {
		return err
	}
	if err := viper.BindPFlag("logLevel", cmd.PersistentFlags().Lookup("logLevel")); err != nil {
		return err
	}
	if err := viper.BindPFlag("logFormat", cmd.PersistentFlags().Lookup("logFormat")); err != nil {
		return err
	}
	if err := viper.BindPFlag("logFilePath", cmd.PersistentFlags().Lookup("logFilePath")); err != nil {
		return err
	}
	ConfigPath = viper.GetString("configPath")
	if ConfigPath != "" {
		viper.SetConfigType("yaml")
		viper.SetConfigFile(ConfigPath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	LogLevel = viper.GetString("logLevel")
	LogFormat = viper.GetString("logFormat")
	LogFilePath = viper.GetString("logFilePath")
	if strings.Contains(LogFilePath, "..") {
		return fmt.Errorf("logFilePath cant contain traversal")
	}
	return nil
}

// BindServerFlags binds the start-server flags to yaml config parameters
func BindServerFlags(cmd *cobra.Command) error {
	if err := BindBaseFlags(cmd); err != nil {
		return err
	}
	for _, f := range []string{port, dbPath, admin, quorum, minJurors, oracleURL} {
		if err := viper.BindPFlag(f, cmd.PersistentFlags().Lookup(f)); err != nil {
			return err
		}
	}
	Port = viper.GetUint64(port)
	DBPath = viper.GetString(dbPath)
	Admin = viper.GetString(admin)
	Quorum = viper.GetUint64(quorum)
	MinJurors = viper.GetUint64(minJurors)
	OracleURL = viper.GetString(oracleURL)
	if Port == 0 || Port > 65535 {
		return fmt.Errorf("port %d out of range", Port)
	}
	if strings.Contains(DBPath, "..") {
		return fmt.Errorf("dbPath cant contain traversal")
	}
	return nil
}

// BindHealthCheckFlags binds the health-check flags to yaml config parameters
func BindHealthCheckFlags(cmd *cobra.Command) error {
	if err := BindBaseFlags(cmd); err != nil {
		return err
	}
	if err := viper.BindPFlag(serverAddr, cmd.PersistentFlags().Lookup(serverAddr)); err != nil {
		return err
	}
	ServerAddr = viper.GetString(serverAddr)
	return nil
}

// LogLevelFlag logger's log level flag to the command
func LogLevelFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logLevel, "debug", "Defines logger's log level", false)
}

// LogFormatFlag logger's encoding flag to the command
func LogFormatFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logFormat, "json", "Defines logger's encoding, valid values are 'json' (default) and 'console'", false)
}

// LogFilePathFlag file path to write logs into
func LogFilePathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logFilePath, "debug.log", "Defines a file path to write logs into", false)
}

// ConfigPathFlag config path flag to the command
func ConfigPathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, configPath, "", "Path to config file", false)
}
