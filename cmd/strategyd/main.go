package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"lstvault/config"
	"lstvault/integrations/onchain"
	"lstvault/native/strategy"
	"lstvault/observability/logging"
	"lstvault/observability/metrics"
	"lstvault/rpc"
	"lstvault/storage"
)

const operatorKeyEnv = "LSTVAULT_OPERATOR_KEY"

func main() {
	configPath := flag.String("config", "strategyd.toml", "path to the daemon configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("strategyd", "").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logging.Setup("strategyd", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
	if err != nil {
		log.Error("failed to dial chain rpc", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	var sender onchain.TxSender
	operator := common.Address{}
	if keyHex := strings.TrimSpace(os.Getenv(operatorKeyEnv)); keyHex != "" {
		signer, err := onchain.NewSignerSender(ctx, client, keyHex)
		if err != nil {
			log.Error("failed to build operator sender", "error", err)
			os.Exit(1)
		}
		sender = signer
		operator = signer.From()
		log.Info("operator sender configured", "from", operator.Hex())
	} else {
		log.Warn("no operator key configured; execution paths disabled", "env", operatorKeyEnv)
	}

	owner := common.HexToAddress(cfg.Custody.Owner)
	custody, err := onchain.NewCustody(client, owner, common.HexToAddress(cfg.Custody.LSTToken))
	if err != nil {
		log.Error("failed to build custody adapter", "error", err)
		os.Exit(1)
	}
	pool, err := onchain.NewPool(client, sender, common.HexToAddress(cfg.Pool.Address), cfg.Pool.AssetIndex, cfg.Pool.LSTIndex)
	if err != nil {
		log.Error("failed to build pool adapter", "error", err)
		os.Exit(1)
	}
	staking, err := onchain.NewStaking(client, sender, common.HexToAddress(cfg.Staking.Address))
	if err != nil {
		log.Error("failed to build staking adapter", "error", err)
		os.Exit(1)
	}
	queue, err := onchain.NewQueue(sender, common.HexToAddress(cfg.Queue.Address))
	if err != nil {
		log.Error("failed to build queue adapter", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Error("failed to open state database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close state database", "error", err)
		}
	}()

	store := strategy.NewStore(db)
	engine := strategy.NewEngine(custody, pool, staking, queue)
	engine.SetStore(store)
	engine.SetOwner(owner)
	engine.SetEmitter(metrics.NewStrategyObserver(nil))

	state, restored, err := store.Load()
	if err != nil {
		log.Error("failed to load strategy state", "error", err)
		os.Exit(1)
	}
	if restored {
		engine.SetState(state)
		log.Info("strategy state restored", "pending", state.PendingRedemptions.String())
	} else {
		fresh := strategy.NewStrategyState()
		if cfg.Staking.Referral != "" {
			fresh.Referral = common.HexToAddress(cfg.Staking.Referral)
		}
		engine.SetState(fresh)
		if err := store.Save(fresh); err != nil {
			log.Error("failed to seed strategy state", "error", err)
			os.Exit(1)
		}
		log.Info("strategy state initialised with deployment defaults")
	}

	if floor, err := cfg.DustFloor(); err == nil && floor != nil {
		engine.SetDustFloor(floor)
	}

	managementAddr := operator
	if cfg.Auth.ManagementAddress != "" {
		managementAddr = common.HexToAddress(cfg.Auth.ManagementAddress)
	}
	emergencyAddr := operator
	if cfg.Auth.EmergencyAddress != "" {
		emergencyAddr = common.HexToAddress(cfg.Auth.EmergencyAddress)
	}
	engine.SetAuthority(strategy.NewStaticAuthority(
		[]common.Address{managementAddr},
		[]common.Address{emergencyAddr},
	))

	server := rpc.NewServer(engine, rpc.Auth{
		ManagementToken: cfg.Auth.ManagementToken,
		EmergencyToken:  cfg.Auth.EmergencyToken,
		ManagementAddr:  managementAddr,
		EmergencyAddr:   emergencyAddr,
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("management rpc listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("rpc server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("rpc shutdown failed", "error", err)
	}
}
