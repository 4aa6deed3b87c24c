// Package cli implements metricsctl, the operator command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qs3c/metrics_go_server/internal/app"
)

// Loader 按需创建容器，只有需要数据库的命令才会调用；返回的 cleanup 在命令结束后执行
type Loader func(configPath string) (c *app.Container, cleanup func(), err error)

type rootOptions struct {
	configPath string
	load       Loader
	container  *app.Container
	cleanup    func()
}

func (o *rootOptions) app() (*app.Container, error) {
	if o.container != nil {
		return o.container, nil
	}
	if o.load == nil {
		return nil, errors.New("container loader not configured")
	}
	c, cleanup, err := o.load(o.configPath)
	if err != nil {
		return nil, err
	}
	o.container, o.cleanup = c, cleanup
	return c, nil
}

func (o *rootOptions) close() {
	if o.cleanup != nil {
		o.cleanup()
	}
	o.container, o.cleanup = nil, nil
}

// Execute 构建并运行 metricsctl 命令树；命令出错时 cobra 不会执行 PostRun，容器在这里统一释放
func Execute(ctx context.Context, load Loader, configure ...func(*cobra.Command)) error {
	root, opts := newRootCmd(load)
	defer opts.close()
	for _, fn := range configure {
		fn(root)
	}
	return root.ExecuteContext(ctx)
}

func newRootCmd(load Loader) (*cobra.Command, *rootOptions) {
	opts := &rootOptions{load: load}

	root := &cobra.Command{
		Use:           "metricsctl",
		Short:         "Revenue metrics operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "config file")

	root.AddCommand(
		newResyncCmd(opts),
		newEnqueueCmd(opts),
		newLeaseCmd(opts),
		newKeyCmd(opts),
		newTokenCmd(opts),
	)
	return root, opts
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
