package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZentaChain/zentalk-xchat/pkg/crypto"
	"github.com/ZentaChain/zentalk-xchat/pkg/network"
	"github.com/ZentaChain/zentalk-xchat/pkg/protocol"
)

// How long a one-shot command waits for the greeting to go out
const greetingTimeout = 2 * time.Second

var errNotRunning = errors.New("dispatcher did not start")

var (
	broadcast bool
	hops      int64
)

var sendCmd = &cobra.Command{
	Use:   "send <peer> <text...>",
	Short: "Send one message and exit",
	Long: `Send one message to a peer through the daemon. With --broadcast the
peer argument is omitted and the text goes to every contact.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if broadcast {
			return cobra.MinimumNArgs(1)(cmd, args)
		}
		return cobra.MinimumNArgs(2)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		peer := ""
		if !broadcast {
			peer, args = args[0], args[1:]
		}
		text := strings.Join(args, " ")

		return withDispatcher(func(d *network.Dispatcher) error {
			sentAt, err := d.SendMessage(peer, text, broadcast)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent at %d\n", sentAt)
			return nil
		})
	},
}

var keyCmd = &cobra.Command{
	Use:   "key <peer> [secret1] [secret2]",
	Short: "Request a key exchange and exit",
	Long: `Ask the daemon to start a key exchange with peer. When secret1 is
omitted a random one is generated and printed so it can be shared with the
peer out of band.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		peer := args[0]

		var secret1, secret2 string
		if len(args) > 1 {
			secret1 = args[1]
		}
		if len(args) > 2 {
			secret2 = args[2]
		}
		if secret1 == "" {
			var err error
			secret1, err = crypto.NewSecret(cfg.KeyExchange.SecretLength)
			if err != nil {
				return err
			}
		}

		hopLimit := cfg.KeyExchange.DefaultHops
		if hops >= 0 {
			hopLimit = uint64(hops)
		}
		if hopLimit > protocol.MaxUint48 {
			return fmt.Errorf("hop limit %d out of range, at most %d", hopLimit, uint64(protocol.MaxUint48))
		}

		return withDispatcher(func(d *network.Dispatcher) error {
			if err := d.SendKey(peer, secret1, secret2, hopLimit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key request sent to %s (secret %s, %d hops)\n", peer, secret1, hopLimit)
			return nil
		})
	},
}

func init() {
	sendCmd.Flags().BoolVar(&broadcast, "broadcast", false, "send to every contact")
	keyCmd.Flags().Int64Var(&hops, "hops", -1, "hop limit (default from config)")
	rootCmd.AddCommand(sendCmd, keyCmd)
}

// withDispatcher opens the channel, greets the daemon and runs fn once the
// dispatcher is running.
func withDispatcher(fn func(d *network.Dispatcher) error) error {
	backend, err := network.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}

	channel, err := network.Open(backend)
	if err != nil {
		return err
	}

	dispatcher := network.NewDispatcher(channel, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Run(ctx)
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(greetingTimeout)

	for dispatcher.State() != network.StateRunning {
		select {
		case err := <-done:
			channel.Close()
			if err == nil {
				err = errNotRunning
			}
			return err
		case <-timeout:
			channel.Close()
			return errNotRunning
		case <-ticker.C:
		}
	}

	err = fn(dispatcher)

	cancel()
	<-done

	return err
}
