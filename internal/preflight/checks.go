package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"carousel/internal/services"
	"carousel/internal/workflow"
)

const engineCheckTimeout = 10 * time.Second

// Engine is the subset of the execution engine client the checks need.
type Engine interface {
	CheckAvailability(ctx context.Context) bool
	BaseURL() string
}

// TemplateLoader loads templates by name.
type TemplateLoader interface {
	Load(name string) (*workflow.Template, error)
}

// CheckEngine verifies that the execution engine answers its status endpoint.
func CheckEngine(ctx context.Context, engine Engine) Result {
	const name = "Execution engine"

	checkCtx, cancel := context.WithTimeout(ctx, engineCheckTimeout)
	defer cancel()

	if !engine.CheckAvailability(checkCtx) {
		if checkCtx.Err() != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: timed out)", engine.BaseURL())}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreachable)", engine.BaseURL())}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", engine.BaseURL())}
}

// CheckTemplate verifies that the named template loads and has the roles it
// needs for parameterization.
func CheckTemplate(loader TemplateLoader, templateName string) Result {
	name := "Default template"

	tmpl, err := loader.Load(templateName)
	if err != nil {
		switch services.Marker(err) {
		case services.ErrTemplateNotFound:
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found)", templateName)}
		default:
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", templateName, err)}
		}
	}
	if _, err := workflow.Parameterize(tmpl, workflow.Values{Prompt: "preflight"}); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", templateName, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d nodes)", templateName, len(tmpl.Nodes))}
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}
