package builtin

import (
	"github.com/flowforge/orchestrator/internal/application/filestorage"
	"github.com/flowforge/orchestrator/pkg/executor"
)

// RegisterBuiltins registers all built-in executors with the given manager.
// This function should be called by applications that want to use built-in executors.
func RegisterBuiltins(manager executor.Manager) error {
	executors := map[string]executor.Executor{
		"http":              NewHTTPExecutor(),
		"html_clean":        NewHTMLCleanExecutor(),
		"transform":         NewTransformExecutor(),
		"llm":               NewLLMExecutor(),
		"function_call":     NewFunctionCallExecutor(),
		"conditional":       NewConditionalExecutor(),
		"merge":             NewMergeExecutor(),
		"rss":               NewRSSParserExecutor(),
		"google_sheets":     NewGoogleSheetsExecutor(),
		"telegram":          NewTelegramExecutor(),
		"telegram_parse":    NewTelegramParseExecutor(),
		"telegram_download": NewTelegramDownloadExecutor(),
		"telegram_callback": NewTelegramCallbackExecutor(),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// MustRegisterBuiltins registers all built-in executors and panics on error.
// This is a convenience function for initialization code.
func MustRegisterBuiltins(manager executor.Manager) {
	if err := RegisterBuiltins(manager); err != nil {
		panic("failed to register built-in executors: " + err.Error())
	}
}

// RegisterAdapters registers the pure data-conversion executors, which need no external
// collaborators.
func RegisterAdapters(manager executor.Manager) error {
	executors := map[string]executor.Executor{
		"base64_to_bytes": NewBase64ToBytesExecutor(),
		"bytes_to_base64": NewBytesToBase64Executor(),
		"string_to_json":  NewStringToJsonExecutor(),
		"json_to_string":  NewJsonToStringExecutor(),
		"bytes_to_json":   NewBytesToJsonExecutor(),
		"csv_to_json":     NewCSVToJSONExecutor(),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// RegisterFileAdapters registers the conversions that move data between flows and the file
// storage subsystem.
func RegisterFileAdapters(manager executor.Manager, fs filestorage.Manager) error {
	executors := map[string]executor.Executor{
		"file_to_bytes": NewFileToBytesExecutor(fs),
		"bytes_to_file": NewBytesToFileExecutor(fs),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// RegisterFileStorage registers the file storage node executor.
func RegisterFileStorage(manager executor.Manager, fs filestorage.Manager) error {
	return manager.Register("file_storage", NewFileStorageExecutor(fs))
}
