package main

import (
	"encoding/json"
	"os"
)

// jsonOutput is the envelope every --json command result is wrapped in.
type jsonOutput struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func printJSONSuccess(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(jsonOutput{Success: true, Data: data})
}

func printJSONError(err error) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(jsonOutput{Success: false, Error: err.Error()})
}

type uploadResult struct {
	FileID    string `json:"file_id"`
	FileSize  int    `json:"file_size"`
	Extension string `json:"extension"`
}

type fileInfoResult struct {
	FileID       string `json:"file_id"`
	FileSize     uint64 `json:"file_size"`
	CreateTime   string `json:"create_time"`
	CRC32        uint32 `json:"crc32"`
	SourceIPAddr string `json:"source_ip_addr"`
}

type batchUploadResult struct {
	Path   string `json:"path"`
	FileID string `json:"file_id,omitempty"`
	Error  string `json:"error,omitempty"`
}
