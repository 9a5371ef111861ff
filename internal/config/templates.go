package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "dev":
		return devTemplate, nil
	case "backend":
		return backendTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const devTemplate = `env_dir = ".devenv"
health_path = "/health"

[backend]
host = "127.0.0.1"
port = 8010
command = ["briefctl"]
install = [
  ["go", "mod", "download"],
  ["go", "build", "-o", ".devenv/bin/briefctl", "./cmd/briefctl"],
]

[backend.env]
BRIEFCTL_DB_PATH = "data/app.db"

[frontend]
host = "127.0.0.1"
port = 8501
command = ["interviewctl"]
interactive = true
install = [
  ["go", "mod", "download"],
  ["go", "build", "-o", ".devenv/bin/interviewctl", "./cmd/interviewctl"],
]
`

const backendTemplate = `id = "briefctl"
addr = "127.0.0.1:8010"
store = "sqlite"
db_path = "data/app.db"
questions_path = ""
cors_origins = ["*"]
api_token = ""
export_dir = ""
session_list_limit = 20
shutdown_timeout = "5s"
`
