package bridge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nerrad567/brager-bridge/internal/bragerone"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/brager-bridge/internal/param"
)

// BootstrapClient is the slice of the vendor API bootstrap depends on.
// Implemented by *bragerone.Client.
type BootstrapClient interface {
	Modules(ctx context.Context, objectID int) ([]bragerone.Module, error)
	ObjectPermissions(ctx context.Context, objectID int) ([]string, error)
	PrimeParameters(ctx context.Context, devIDs []string) (bragerone.PrimeSnapshot, error)
	ModuleMenu(ctx context.Context, deviceMenu int, permissions []string) (*bragerone.Menu, error)
	DescribeSymbols(ctx context.Context, symbols []string) (map[string]bragerone.SymbolDetail, error)
}

// ModuleMeta is the persisted per-module metadata block.
type ModuleMeta struct {
	DevID           string    `json:"devid"`
	Name            string    `json:"name"`
	Title           string    `json:"title"`
	Version         string    `json:"version"`
	DeviceMenu      int       `json:"device_menu"`
	ModuleInterface string    `json:"module_interface,omitempty"`
	ModuleAddress   int       `json:"module_address,omitempty"`
	GatewayID       string    `json:"gateway_id,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// BootstrapResult is everything one bootstrap pass produces: classified
// descriptors ready for discovery, module metadata for device grouping,
// and the prime snapshot that seeds entity state.
type BootstrapResult struct {
	Descriptors []param.Descriptor
	Modules     []ModuleMeta
	Snapshot    bragerone.PrimeSnapshot
}

// Bootstrap builds entity descriptors from the vendor metadata tree.
//
// The pass walks: modules under the object (optionally filtered to the
// configured devids), the permission-pruned menu of each module for
// candidate symbols, and the symbol describe endpoint for metadata. Every
// candidate runs through the exposability filter and platform classifier;
// what survives is a Descriptor with derived enum tables.
//
// A menu fetch that fails with permissions is retried once without them,
// matching accounts whose permission list is broader than the menu
// service accepts.
//
// Parameters:
//   - client: Vendor API client, already authenticated
//   - objectID: Installation to bootstrap
//   - onlyModules: Optional devid filter, nil means all modules
//   - logger: Component logger (may be nil)
func Bootstrap(ctx context.Context, client BootstrapClient, objectID int, onlyModules []string, logger *logging.Logger) (*BootstrapResult, error) {
	selected := make(map[string]struct{}, len(onlyModules))
	for _, devID := range onlyModules {
		selected[devID] = struct{}{}
	}

	allModules, err := client.Modules(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	modules := make([]bragerone.Module, 0, len(allModules))
	for _, module := range allModules {
		if len(selected) > 0 {
			if _, ok := selected[module.DevID]; !ok {
				continue
			}
		}
		modules = append(modules, module)
	}

	devIDs := make([]string, 0, len(modules))
	for _, module := range modules {
		devIDs = append(devIDs, module.DevID)
	}

	snapshot, err := client.PrimeParameters(ctx, devIDs)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	permissions, err := client.ObjectPermissions(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	perModuleSymbols := make(map[string][]string, len(modules))
	perModulePaths := make(map[string]map[string]string, len(modules))
	symbolSet := make(map[string]struct{})

	for _, module := range modules {
		menu, err := client.ModuleMenu(ctx, module.DeviceMenu, permissions)
		if err != nil {
			if logger != nil {
				logger.Debug("menu fetch with permissions failed, retrying without",
					"devid", module.DevID,
					"error", err)
			}
			menu, err = client.ModuleMenu(ctx, module.DeviceMenu, nil)
			if err != nil {
				return nil, fmt.Errorf("bootstrap: menu for %s: %w", module.DevID, err)
			}
		}

		symbols := menu.AllTokens()
		perModuleSymbols[module.DevID] = symbols
		perModulePaths[module.DevID] = menu.TokenPaths()
		for _, symbol := range symbols {
			symbolSet[symbol] = struct{}{}
		}
	}

	allSymbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		allSymbols = append(allSymbols, symbol)
	}
	sort.Strings(allSymbols)

	details, err := client.DescribeSymbols(ctx, allSymbols)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	result := &BootstrapResult{Snapshot: snapshot}
	now := time.Now().UTC()

	for _, module := range modules {
		result.Modules = append(result.Modules, ModuleMeta{
			DevID:           module.DevID,
			Name:            module.Name,
			Title:           module.ModuleTitle,
			Version:         module.ModuleVersion,
			DeviceMenu:      module.DeviceMenu,
			ModuleInterface: module.ModuleInterface,
			ModuleAddress:   module.ModuleAddress,
			GatewayID:       module.Gateway.ID,
			UpdatedAt:       now,
		})

		symbols := append([]string{}, perModuleSymbols[module.DevID]...)
		sort.Strings(symbols)

		for _, symbol := range symbols {
			detail, ok := details[symbol]
			if !ok {
				continue
			}

			writable := detail.Mapping != nil && len(detail.Mapping.CommandRules) > 0
			if !param.IsExposable(writable, detail.Pool, detail.Chan, detail.Idx, detail.Mapping) {
				continue
			}

			label := detail.Label
			if label == "" {
				label = symbol
			}

			descriptor := param.Descriptor{
				Key:           fmt.Sprintf("%s:%s", module.DevID, symbol),
				Symbol:        symbol,
				DevID:         module.DevID,
				ModuleName:    module.Name,
				ModuleTitle:   module.ModuleTitle,
				ModuleVersion: module.ModuleVersion,
				DeviceMenu:    module.DeviceMenu,
				Label:         label,
				Unit:          detail.UnitString(),
				PanelPath:     perModulePaths[module.DevID][symbol],
				Pool:          detail.Pool,
				Chan:          detail.Chan,
				Idx:           detail.Idx,
				Min:           detail.Min,
				Max:           detail.Max,
				Mapping:       detail.Mapping,
				Writable:      writable,
			}
			param.Derive(&descriptor)
			result.Descriptors = append(result.Descriptors, descriptor)
		}
	}

	if logger != nil {
		logger.Info("bootstrap complete",
			"modules", len(result.Modules),
			"symbols", len(allSymbols),
			"descriptors", len(result.Descriptors))
	}
	return result, nil
}
