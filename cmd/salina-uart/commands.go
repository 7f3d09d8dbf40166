package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/bridge"
	"github.com/muurk/salina-uart/internal/config"
	"github.com/muurk/salina-uart/internal/console"
	"github.com/muurk/salina-uart/internal/discovery"
	"github.com/muurk/salina-uart/internal/exploit"
	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/server"
	"github.com/muurk/salina-uart/internal/uart"
	"github.com/muurk/salina-uart/internal/ucmd"
)

// Bridge command flags
var (
	configPath   string
	bridgeEmcDev string
	bridgeEfcDev string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the bridge daemon",
	Long: `Run the bridge daemon: relay the EMC command channel and EFC console
to TCP clients, answer maintenance commands locally, and optionally
announce the bridge over mDNS.

Configuration comes from the YAML config file; flags override the
serial devices for quick bench use.`,
	Example: `  # Run with the default configuration file
  salina-uart bridge

  # Override the EMC serial device
  salina-uart bridge --emc /dev/ttyUSB1 --log-level debug`,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: platform config dir)")
	bridgeCmd.Flags().StringVar(&bridgeEmcDev, "emc", "", "EMC serial device (overrides config)")
	bridgeCmd.Flags().StringVar(&bridgeEfcDev, "efc", "", "EFC serial device (overrides config)")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if bridgeEmcDev != "" {
		cfg.Emc.Device = bridgeEmcDev
	}
	if bridgeEfcDev != "" {
		cfg.Efc.Device = bridgeEfcDev
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	emcBaud := cfg.Emc.Baud
	if emcBaud == 0 {
		emcBaud = bridge.NormalBaud
	}
	emcPort, err := uart.Open(cfg.Emc.Device, emcBaud)
	if err != nil {
		return fmt.Errorf("emc port: %w", err)
	}
	defer emcPort.Close()
	logging.Info("emc port open",
		zap.String("device", cfg.Emc.Device), zap.Int("baud", emcBaud))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emcOut := server.NewBroadcast()
	efcOut := server.NewBroadcast()
	bcfg := bridge.Config{
		Emc:        emcPort,
		EmcOut:     emcOut,
		EfcOut:     efcOut,
		Registry:   registry,
		OnShutdown: cancel,
	}
	if cfg.Efc.Device != "" {
		efcPort, err := uart.Open(cfg.Efc.Device, bridge.DefaultEfcBaud)
		if err != nil {
			return fmt.Errorf("efc port: %w", err)
		}
		defer efcPort.Close()
		bcfg.Efc = efcPort
		logging.Info("efc port open", zap.String("device", cfg.Efc.Device))
	}

	br := bridge.New(bcfg)
	if cfg.Chip != "" {
		if r := br.Orchestrator().SetChipConsts("picochipconst " + cfg.Chip); !r.IsSuccess() {
			return fmt.Errorf("chip preset %q rejected", cfg.Chip)
		}
	}
	if cfg.Efc.Baud != 0 {
		br.SetEfcBaud(cfg.Efc.Baud)
	}

	if cfg.MDNS.Enabled {
		ann, err := discovery.Announce(discovery.Announcement{
			Instance: cfg.MDNS.Instance,
			EmcPort:  cfg.Listen.EmcPort,
			EfcPort:  cfg.Listen.EfcPort,
			HTTPPort: cfg.Listen.HTTPPort,
		})
		if err != nil {
			// A bench setup without multicast still works over plain TCP.
			fmt.Fprintf(os.Stderr, "Warning: mDNS announce failed: %v\n", err)
			logging.Warn("mdns announce failed", zap.Error(err))
		} else {
			defer ann.Shutdown()
		}
	}

	srv := server.New(server.Config{
		Host:     cfg.Listen.Host,
		EmcPort:  cfg.Listen.EmcPort,
		EfcPort:  cfg.Listen.EfcPort,
		HTTPPort: cfg.Listen.HTTPPort,
	}, br, emcOut, efcOut)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start(ctx) }()

	err = br.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if serr := <-srvErr; serr != nil && !errors.Is(serr, context.Canceled) {
		logging.Error("server failed", zap.Error(serr))
		if err == nil {
			err = serr
		}
	}
	return err
}

func buildRegistry(cfg *config.Config) (*exploit.FwRegistry, error) {
	registry := exploit.NewFwRegistry()
	for _, fw := range cfg.Firmwares {
		addr, shellcode, err := fw.Decode()
		if err != nil {
			return nil, err
		}
		registry.Set(fw.Version, exploit.FwConstants{BufAddr: addr, Shellcode: shellcode})
	}
	return registry, nil
}

// Unlock command flags
var (
	unlockDevice string
	unlockChip   string
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the EMC over a local serial port",
	Long: `Run the manufacturing-mode unlock directly against a local serial
port, without a running bridge. Safe to repeat: an already-unlocked
device is detected and left alone.

If the device crashes during the attempt it is reset automatically;
wait a few seconds and run the command again.`,
	Example: `  salina-uart unlock --device /dev/ttyUSB0
  salina-uart unlock --device /dev/ttyUSB0 --chip salina2`,
	RunE: runUnlock,
}

func init() {
	unlockCmd.Flags().StringVar(&unlockDevice, "device", "/dev/ttyUSB0", "EMC serial device")
	unlockCmd.Flags().StringVar(&unlockChip, "chip", "", "Chip timing preset (salina, salina2)")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	port, err := uart.Open(unlockDevice, bridge.NormalBaud)
	if err != nil {
		return err
	}
	defer port.Close()

	logging.Debug("unlock starting", zap.String("device", unlockDevice))
	client := ucmd.NewClient(port, port.Rx(), nil)
	orch := exploit.NewOrchestrator(client, port, exploit.NewFwRegistry())
	if unlockChip != "" {
		if r := orch.SetChipConsts("picochipconst " + unlockChip); !r.IsSuccess() {
			return fmt.Errorf("chip preset %q rejected", unlockChip)
		}
	}

	result := orch.Run()
	fmt.Println(result.Format())
	if !result.IsSuccess() {
		return fmt.Errorf("unlock failed")
	}
	return nil
}

// Cmd command flags
var (
	cmdDevice  string
	cmdTimeout time.Duration
)

var cmdCmd = &cobra.Command{
	Use:   "cmd <command>...",
	Short: "Send one command over a local serial port",
	Long: `Send a single checksummed command to the EMC and print its terminal
response. Arguments are joined with spaces, so quoting is optional.`,
	Example: `  salina-uart cmd version
  salina-uart cmd --device /dev/ttyACM0 getserialno`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCmd,
}

func init() {
	cmdCmd.Flags().StringVar(&cmdDevice, "device", "/dev/ttyUSB0", "EMC serial device")
	cmdCmd.Flags().DurationVar(&cmdTimeout, "timeout", 100*time.Millisecond, "Response timeout")
}

func runCmd(cmd *cobra.Command, args []string) error {
	port, err := uart.Open(cmdDevice, bridge.NormalBaud)
	if err != nil {
		return err
	}
	defer port.Close()

	client := ucmd.NewClient(port, port.Rx(), nil)
	result := client.Command(strings.Join(args, " "), cmdTimeout)
	fmt.Println(result.Format())
	if !result.IsOk() {
		return fmt.Errorf("command failed")
	}
	return nil
}

// Console command flags
var (
	consoleAddr     string
	consoleDiscover bool
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console against a running bridge",
	Long: `Open an interactive terminal session on a bridge's EMC channel.
Responses are decoded and colored; commands are sent as typed.`,
	Example: `  salina-uart console --addr 192.168.1.50:3380
  salina-uart console --discover`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleAddr, "addr", "127.0.0.1:3380", "Bridge EMC channel address")
	consoleCmd.Flags().BoolVar(&consoleDiscover, "discover", false, "Find the bridge via mDNS instead of --addr")
}

func runConsole(cmd *cobra.Command, args []string) error {
	addr := consoleAddr
	if consoleDiscover {
		fmt.Println("Searching for bridges...")
		found, err := discovery.NewScanner().FindFirst(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Found %s (%s)\n", found.Instance, found.EmcAddr())
		addr = found.EmcAddr()
	}
	return console.Run(addr)
}
