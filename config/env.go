package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv overlays .env files from baseDir onto the process
// environment. .env is always read first; the second file depends on
// the deployment:
//
//	RUNNING_IN_DOCKER=1  .env.docker
//	ENV=lan              .env.lan, plus LOCAL_IP and the LAN origins
//	ENV=rpi              .env.rpi
//	ENV=production       .env.prod
//	otherwise            .env.local
//
// Missing files are skipped.
func LoadEnv(baseDir string) error {
	if err := overload(filepath.Join(baseDir, ".env")); err != nil {
		return err
	}

	switch {
	case os.Getenv("RUNNING_IN_DOCKER") == "1":
		return overload(filepath.Join(baseDir, ".env.docker"))
	case os.Getenv("ENV") == "lan":
		if err := overload(filepath.Join(baseDir, ".env.lan")); err != nil {
			return err
		}
		return exposeOnLAN(LocalIP())
	case os.Getenv("ENV") == "rpi":
		return overload(filepath.Join(baseDir, ".env.rpi"))
	case os.Getenv("ENV") == "production":
		return overload(filepath.Join(baseDir, ".env.prod"))
	}
	return overload(filepath.Join(baseDir, ".env.local"))
}

func overload(path string) error {
	err := godotenv.Overload(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func exposeOnLAN(ip string) error {
	if err := os.Setenv("LOCAL_IP", ip); err != nil {
		return err
	}
	if err := os.Setenv("ALLOWED_HOSTS", GetEnv("ALLOWED_HOSTS", "")+","+ip); err != nil {
		return err
	}
	origins := GetEnv("ALLOWED_ORIGINS", "") + ",http://" + ip + ":3000,http://" + ip + ":5173"
	return os.Setenv("ALLOWED_ORIGINS", origins)
}

// LocalIP returns the address of the interface that routes outside the
// host, or 127.0.0.1. No packet is sent.
func LocalIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// GetEnv returns the trimmed value of key, or fallback when unset.
func GetEnv(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		value = fallback
	}
	return strings.TrimSpace(value)
}

// GetEnvList splits a comma separated variable, dropping blanks.
func GetEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetBool accepts true, 1 and yes in any case.
func GetBool(key, fallback string) bool {
	switch strings.ToLower(GetEnv(key, fallback)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
