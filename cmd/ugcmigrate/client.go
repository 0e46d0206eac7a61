package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"ugcmigrate/internal/api"
	"ugcmigrate/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
	serverProbeTimeout = 500 * time.Millisecond
	serverStopTimeout  = 5 * time.Second

	serverLogFileName = "ugcmigrate-srv.log"
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	return fn(api.NewClient(cfg.APIURL))
}

// ensureServer makes sure a ugcmigrate server for cfg.DBPath answers at
// cfg.APIURL, starting one in the background when nothing does. The
// returned cleanup stops a server started here.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)

	ctx, cancel := context.WithTimeout(context.Background(), serverProbeTimeout)
	err := client.Ping(ctx)
	cancel()
	if err == nil {
		return nil, checkServerRepository(client, cfg)
	}

	cmd, logFile, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}
	stop := func() {
		stopServerProcess(cmd)
		if logFile != nil {
			_ = logFile.Close()
		}
	}

	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		if logFile != nil {
			return nil, fmt.Errorf("%w (server log: %s)", err, logFile.Name())
		}
		return nil, err
	}
	return stop, nil
}

// checkServerRepository refuses to talk to a running server that serves a
// different database than the one configured.
func checkServerRepository(client *api.Client, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), serverProbeTimeout)
	defer cancel()

	info, err := client.GetInfo(ctx)
	if err != nil {
		return err
	}
	if info.DBPath == "" || cfg.DBPath == "" || sameFile(info.DBPath, cfg.DBPath) {
		return nil
	}
	return fmt.Errorf("server at %s serves %s, not %s", cfg.APIURL, info.DBPath, cfg.DBPath)
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	aInfo, errA := os.Stat(a)
	bInfo, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(aInfo, bInfo)
}

// startServerProcess runs `ugcmigrate srv` for cfg. Server output goes to
// a log file next to the database so failed imports can be diagnosed.
func startServerProcess(cfg *config.Config) (*exec.Cmd, *os.File, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"UGCMIGRATE_DB="+cfg.DBPath,
		"UGCMIGRATE_API_URL="+cfg.APIURL,
	)
	if cfg.AdminTokenHash != "" {
		cmd.Env = append(cmd.Env, "UGCMIGRATE_ADMIN_TOKEN_HASH="+cfg.AdminTokenHash)
	}

	logFile := openServerLog(cfg.DBPath)
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, nil, err
	}
	return cmd, logFile, nil
}

// openServerLog returns nil when no log file can be created; the server
// then runs without captured output.
func openServerLog(dbPath string) *os.File {
	if dbPath == "" {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(filepath.Dir(dbPath), serverLogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return f
}

// stopServerProcess interrupts the server so it drains in-flight requests,
// and kills it if it has not exited after serverStopTimeout.
func stopServerProcess(cmd *exec.Cmd) {
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-done:
	case <-time.After(serverStopTimeout):
		_ = cmd.Process.Kill()
		<-done
	}
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()

	for {
		pingCtx, pingCancel := context.WithTimeout(ctx, 200*time.Millisecond)
		err := client.Ping(pingCtx)
		pingCancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// Port is taken by something that is not a ugcmigrate server.
			return err
		}

		select {
		case <-ctx.Done():
			return errors.New("server did not start in time")
		case <-ticker.C:
		}
	}
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
