package integration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"Dauction/client"
	"Dauction/internal/types"
)

var (
	nft     = types.MustAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	usd     = types.MustAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")
	weth    = types.MustAddress("0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0")
	ethFeed = types.MustAddress("0xdc64a140aa3e981100a9beca4e685f962f0cf6c9")
)

// nodeConfig is the YAML every test node runs with. Bidding windows may be
// as short as one second so lifecycles fit in a test.
const nodeConfig = `
log:
  level: debug
auction:
  min_bidding_duration: 1s
  reference_token: "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
  accepted_tokens:
    - token: "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
      decimals: 18
    - token: "0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0"
      price_feed: "0xdc64a140aa3e981100a9beca4e685f962f0cf6c9"
      decimals: 18
oracle:
  answers:
    - feed: "0xdc64a140aa3e981100a9beca4e685f962f0cf6c9"
      price: "200000000000"
      decimals: 8
devnet:
  enabled: true
  collections:
    - "0x5fbdb2315678afecb367f032d93f642f64180aa3"
`

// safeBuffer wraps bytes.Buffer with a mutex for concurrent read/write.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends data to the buffer (implements io.Writer).
func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.Write(p)
}

// String returns the buffer contents as a string.
func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.String()
}

// Node represents a running auction node process.
type Node struct {
	cmd      *exec.Cmd          // cmd is the running process
	httpAddr string             // httpAddr is the HTTP API address
	dataDir  string             // dataDir is the node's data directory
	keyPath  string             // keyPath is the node's private key file
	stdout   *safeBuffer        // stdout captures process output
	stderr   *safeBuffer        // stderr captures process errors
	cancel   context.CancelFunc // cancel stops the process
}

// Client returns a read-only client for the node.
func (n *Node) Client() *client.Client { return client.New(n.httpAddr) }

// LogContains checks if the node's logs contain a substring.
func (n *Node) LogContains(s string) bool {
	return strings.Contains(n.stdout.String(), s)
}

// Stop terminates the node process.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}

	if n.cmd != nil && n.cmd.Process != nil {
		n.cmd.Process.Kill()
		// Wait is already called by the background goroutine in startNode.
		time.Sleep(100 * time.Millisecond)
	}
}

// Harness builds the node binary once per test and starts nodes from it.
type Harness struct {
	t          *testing.T
	binaryPath string
	testDir    string
	config     string
	nextPort   int
}

// NewHarness builds the binary and registers cleanup.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDir, err := os.MkdirTemp("", "dauction_it_*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(testDir) })

	config := filepath.Join(testDir, "config.yaml")
	if err := os.WriteFile(config, []byte(nodeConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &Harness{
		t:          t,
		binaryPath: buildBinary(t),
		testDir:    testDir,
		config:     config,
		nextPort:   18100,
	}
}

// StartNode starts a node in dataDir (created under the test dir when
// relative) and waits until it answers. restore may name a snapshot file.
func (h *Harness) StartNode(name, restore string) *Node {
	h.t.Helper()

	node := &Node{
		httpAddr: fmt.Sprintf("127.0.0.1:%d", h.nextPort),
		dataDir:  filepath.Join(h.testDir, name),
		stdout:   &safeBuffer{},
		stderr:   &safeBuffer{},
	}
	node.keyPath = filepath.Join(h.testDir, name+".key")
	h.nextPort++

	args := []string{
		"--config", h.config,
		"--data", node.dataDir,
		"--http", node.httpAddr,
		"--key", node.keyPath,
	}
	if restore != "" {
		args = append(args, "--restore", restore)
	}

	ctx, cancel := context.WithCancel(context.Background())
	node.cancel = cancel

	node.cmd = exec.CommandContext(ctx, h.binaryPath, args...)
	node.cmd.Stdout = node.stdout
	node.cmd.Stderr = node.stderr

	if err := node.cmd.Start(); err != nil {
		h.t.Fatalf("start node %s: %v", name, err)
	}

	// Wait in background so ProcessState gets set when the process exits.
	go node.cmd.Wait()

	h.t.Cleanup(node.Stop)

	h.waitHealthy(node, 15*time.Second)

	return node
}

// RestartNode stops node and starts it again on the same data and key.
func (h *Harness) RestartNode(node *Node) *Node {
	h.t.Helper()

	node.Stop()

	name := filepath.Base(node.dataDir)
	return h.StartNode(name, "")
}

func (h *Harness) waitHealthy(node *Node, timeout time.Duration) {
	h.t.Helper()

	c := node.Client()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if err := c.Health(); err == nil {
			return
		}

		if node.cmd.ProcessState != nil {
			h.t.Fatalf("node exited early:\n%s\n%s", node.stdout.String(), node.stderr.String())
		}

		time.Sleep(100 * time.Millisecond)
	}

	h.t.Fatalf("node %s not healthy after %s:\n%s", node.httpAddr, timeout, node.stderr.String())
}

// buildBinary compiles the node binary.
// Uses a unique temp file per test to avoid races when tests run in parallel.
func buildBinary(t *testing.T) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "dauction_test_*")
	if err != nil {
		t.Fatalf("create temp binary file: %v", err)
	}

	binary := tmpFile.Name()
	tmpFile.Close()

	cmd := exec.Command("go", "build", "-o", binary, "./cmd/dauction")
	cmd.Dir = getProjectRoot(t)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, output)
	}

	t.Cleanup(func() { os.Remove(binary) })

	return binary
}

// getProjectRoot returns the project root directory (containing go.mod).
func getProjectRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}

	dir := wd
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find project root from %s", wd)

	return ""
}

// waitUntil sleeps until the wall clock passes unix.
func waitUntil(unix int64) {
	if d := time.Until(time.Unix(unix, 0)); d > 0 {
		time.Sleep(d + 50*time.Millisecond)
	}
}
