package utils

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// SensitiveError wraps an error whose detail must not reach API clients. The
// full error goes to the log, PresentedErr goes on the wire.
type SensitiveError struct {
	Err          error
	PresentedErr string
}

func (e *SensitiveError) Error() string { return e.Err.Error() }

func (e *SensitiveError) Unwrap() error { return e.Err }

// WriteErrorResponse logs err and writes it as a JSON error body.
func WriteErrorResponse(logger *zap.Logger, writer http.ResponseWriter, err error, statusCode int) {
	logger.Error("request failed", zap.Int("status", statusCode), zap.Error(err))
	message := err.Error()
	var sensitive *SensitiveError
	if errors.As(err, &sensitive) {
		message = sensitive.PresentedErr
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	body, marshalErr := json.Marshal(map[string]string{"error": message})
	if marshalErr != nil {
		return
	}
	if _, err := writer.Write(body); err != nil {
		logger.Error("error writing error response", zap.Error(err))
	}
}

// WriteJSONResponse writes data as a JSON body with the given status.
func WriteJSONResponse(logger *zap.Logger, writer http.ResponseWriter, data any, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		WriteErrorResponse(logger, writer, err, http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(body); err != nil {
		logger.Error("error writing response", zap.Error(err))
	}
}

// WriteJSON writes data to a file as JSON.
func WriteJSON(filepath string, data any) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewEncoder(file).Encode(data)
}

// HexToAddress parses a 20-byte hex address with or without the 0x prefix.
func HexToAddress(s string) (common.Address, error) {
	var a common.Address
	if has0xPrefix(s) {
		s = s[2:]
	}
	decodedBytes, err := hex.DecodeString(s)
	if err != nil {
		return common.Address{}, err
	}
	if len(decodedBytes) != 20 {
		return common.Address{}, fmt.Errorf("not valid ETH address with len %d", len(decodedBytes))
	}
	a.SetBytes(decodedBytes)
	return a, nil
}

func has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}
