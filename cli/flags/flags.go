package flags

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flag names.
const (
	port       = "port"
	dbPath     = "dbPath"
	admin      = "admin"
	quorum     = "quorum"
	minJurors  = "minJurors"
	oracleURL  = "oracleURL"
	serverAddr = "serverAddr"
)

// PortFlag adds the listen port flag to the command
func PortFlag(c *cobra.Command) {
	AddPersistentIntFlag(c, port, 3030, "Port to listen on", false)
}

// DBPathFlag adds the pebble database path flag to the command
func DBPathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, dbPath, "./tribunal-db", "Path to the case database", false)
}

// AdminFlag adds the registry admin address flag to the command
func AdminFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, admin, "", "Registry admin address", true)
}

// QuorumFlag adds the approval quorum flag to the command
func QuorumFlag(c *cobra.Command) {
	AddPersistentIntFlag(c, quorum, 2, "Approvals required to freeze a reported address", false)
}

// MinJurorsFlag adds the juror panel size flag to the command
func MinJurorsFlag(c *cobra.Command) {
	AddPersistentIntFlag(c, minJurors, 3, "Jurors selected per case", false)
}

// OracleURLFlag adds the randomness oracle gateway flag to the command
func OracleURLFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, oracleURL, "", "Randomness oracle gateway URL; empty runs the in-memory oracle", false)
}

// ServerAddrFlag adds the tribunal server address flag to the command
func ServerAddrFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, serverAddr, "http://localhost:3030", "Tribunal server address", false)
}

// AddPersistentStringFlag adds a string flag to the command
func AddPersistentStringFlag(c *cobra.Command, flag, value, description string, isRequired bool) {
	req := ""
	if isRequired {
		req = " (required)"
	}

	c.PersistentFlags().String(flag, value, fmt.Sprintf("%s%s", description, req))

	if isRequired {
		_ = c.MarkPersistentFlagRequired(flag)
	}
}

// AddPersistentIntFlag adds a uint64 flag to the command
func AddPersistentIntFlag(c *cobra.Command, flag string, value uint64, description string, isRequired bool) {
	req := ""
	if isRequired {
		req = " (required)"
	}

	c.PersistentFlags().Uint64(flag, value, fmt.Sprintf("%s%s", description, req))

	if isRequired {
		_ = c.MarkPersistentFlagRequired(flag)
	}
}
