// Package main provides the raaga CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/app/favorites"
	"github.com/mnish/raaga/internal/app/player"
	"github.com/mnish/raaga/internal/app/playlists"
	"github.com/mnish/raaga/internal/app/search"
	"github.com/mnish/raaga/internal/app/session"
	"github.com/mnish/raaga/internal/app/suggest"
	"github.com/mnish/raaga/internal/app/theme"
	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/catalog"
	"github.com/mnish/raaga/internal/infra/config"
	"github.com/mnish/raaga/internal/infra/engine"
	"github.com/mnish/raaga/internal/infra/logger"
	"github.com/mnish/raaga/internal/infra/storage"
)

var (
	app        = kingpin.New("raaga", "raaga streaming music player")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// search command
	searchCmd   = app.Command("search", "Search the catalog for songs")
	searchQuery = searchCmd.Arg("query", "Search query").Required().Strings()
	searchPage  = searchCmd.Flag("page", "Result page").Default("1").Int()

	// play command
	playCmd     = app.Command("play", "Play search results, or resume the saved queue")
	playQuery   = playCmd.Arg("query", "Search query (omit to resume the saved queue)").Strings()
	playShuffle = playCmd.Flag("shuffle", "Enable shuffle").Bool()
	playRepeat  = playCmd.Flag("repeat", "Repeat mode (none|one|all)").Enum("none", "one", "all")

	// radio command
	radioCmd   = app.Command("radio", "Play a song followed by suggested tracks")
	radioID    = radioCmd.Arg("song-id", "Catalog song ID").Required().String()
	radioCount = radioCmd.Flag("count", "Number of suggestions to queue").Default("10").Int()

	// recent command
	recentCmd   = app.Command("recent", "Show recent searches")
	recentClear = recentCmd.Flag("clear", "Clear search history").Bool()

	// favorites commands
	favCmd       = app.Command("favorites", "Manage favorite songs")
	favListCmd   = favCmd.Command("list", "List favorites").Default()
	favAddCmd    = favCmd.Command("add", "Add a song to favorites")
	favAddID     = favAddCmd.Arg("song-id", "Catalog song ID").Required().String()
	favRemoveCmd = favCmd.Command("remove", "Remove a song from favorites")
	favRemoveID  = favRemoveCmd.Arg("song-id", "Catalog song ID").Required().String()

	// playlist commands
	plCmd        = app.Command("playlist", "Manage playlists")
	plListCmd    = plCmd.Command("list", "List playlists").Default()
	plCreateCmd  = plCmd.Command("create", "Create a playlist")
	plCreateName = plCreateCmd.Arg("name", "Playlist name").Required().String()
	plAddCmd     = plCmd.Command("add", "Add a song to a playlist")
	plAddID      = plAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	plAddSong    = plAddCmd.Arg("song-id", "Catalog song ID").Required().String()
	plRemoveCmd  = plCmd.Command("remove", "Delete a playlist")
	plRemoveID   = plRemoveCmd.Arg("playlist-id", "Playlist ID").Required().String()

	// theme command
	themeCmd    = app.Command("theme", "Show or toggle the theme preference")
	themeToggle = themeCmd.Flag("toggle", "Toggle between light and dark").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := config.LogConfig{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		zlog.Debug().Msgf("Loading config from %s", *configPath)
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	store, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		zlog.Fatal().Msgf("Failed to open storage: %v", err)
	}

	// Execute command
	switch command {
	case searchCmd.FullCommand():
		err = runSearch(cfg, store, strings.Join(*searchQuery, " "), *searchPage)
	case playCmd.FullCommand():
		err = runPlay(cfg, store, strings.Join(*playQuery, " "), *playShuffle, *playRepeat)
	case radioCmd.FullCommand():
		err = runRadio(cfg, store, *radioID, *radioCount)
	case recentCmd.FullCommand():
		err = runRecent(store, *recentClear)
	case favListCmd.FullCommand():
		err = runFavoritesList(store)
	case favAddCmd.FullCommand():
		err = runFavoritesAdd(cfg, store, *favAddID)
	case favRemoveCmd.FullCommand():
		err = runFavoritesRemove(store, *favRemoveID)
	case plListCmd.FullCommand():
		err = runPlaylistList(store)
	case plCreateCmd.FullCommand():
		err = runPlaylistCreate(store, *plCreateName)
	case plAddCmd.FullCommand():
		err = runPlaylistAdd(cfg, store, *plAddID, *plAddSong)
	case plRemoveCmd.FullCommand():
		err = runPlaylistRemove(store, *plRemoveID)
	case themeCmd.FullCommand():
		err = runTheme(store, *themeToggle)
	}
	if err != nil {
		zlog.Error().Msgf("Command failed: %v", err)
		os.Exit(1)
	}
}

// newCatalogClient builds a catalog client from config.
func newCatalogClient(cfg *config.Config) (*catalog.Client, error) {
	return catalog.New(catalog.Config{
		BaseURL:  cfg.Catalog.BaseURL,
		Timeout:  time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
		PageSize: cfg.Catalog.PageSize,
	})
}

// newEngine creates the audio engine selected by config.
func newEngine(cfg config.EngineConfig) (session.Engine, error) {
	switch cfg.Type {
	case "", "beep":
		return engine.New(cfg.Settings)
	default:
		return nil, errors.Newf("unknown engine type %q", cfg.Type)
	}
}

func runSearch(cfg *config.Config, store storage.Store, query string, page int) error {
	client, err := newCatalogClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.SearchSongs(ctx, query, page, cfg.Catalog.PageSize)
	if err != nil {
		return err
	}

	hist := search.NewHistory(store)
	hist.Load()
	hist.Add(query)

	if len(result.Tracks) == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}

	fmt.Printf("Results for %q (%d total):\n", query, result.Total)
	for i, t := range result.Tracks {
		fmt.Printf("  %2d. %-40s %-25s %s  [%s]\n",
			result.Start+i, truncate(t.Name, 40), truncate(t.PrimaryArtists, 25),
			formatClock(t.Duration.Float()), t.ID)
	}
	return nil
}

func runPlay(cfg *config.Config, store storage.Store, query string, shuffleOn bool, repeat string) error {
	mgr := player.NewManager(store)
	defer mgr.Close()
	mgr.Load()

	eng, err := newEngine(cfg.Engine)
	if err != nil {
		return err
	}

	ctrl := session.NewController(mgr, eng, session.Config{
		QualityPreference: cfg.Player.QualityPreference,
		PollInterval:      time.Duration(cfg.Player.PollIntervalMs) * time.Millisecond,
	})
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	applyPlaybackFlags(mgr, shuffleOn, repeat)

	if query != "" {
		client, err := newCatalogClient(cfg)
		if err != nil {
			return err
		}
		result, err := client.SearchSongs(ctx, query, 1, cfg.Catalog.PageSize)
		if err != nil {
			return err
		}
		if len(result.Tracks) == 0 {
			return errors.Newf("no results for %q", query)
		}
		hist := search.NewHistory(store)
		hist.Load()
		hist.Add(query)

		mgr.SetQueue(result.Tracks, 0)
	} else {
		// Resume the persisted queue from its saved position.
		t, ok := mgr.CurrentTrack()
		if !ok {
			return errors.New("saved queue is empty, give a search query")
		}
		if err := ctrl.LoadTrack(ctx, t); err != nil {
			return err
		}
		mgr.SetPlaying(true)
	}

	return watchPlayback(mgr, ctrl)
}

func runRadio(cfg *config.Config, store storage.Store, songID string, count int) error {
	client, err := newCatalogClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed, err := client.GetSong(ctx, songID)
	if err != nil {
		return errors.Wrapf(err, "failed to look up song %q", songID)
	}

	favs := favorites.NewSet(store)
	favs.Load()

	chain := suggest.NewChain(
		suggest.NewCatalogProvider(client),
		suggest.NewFavoritesProvider(favs),
	)
	suggestions, err := chain.Suggestions(ctx, *seed, count, nil)
	if err != nil {
		zlog.Warn().Msgf("No suggestions for %q, playing the song alone: %v", seed.Name, err)
	}

	mgr := player.NewManager(store)
	defer mgr.Close()
	mgr.Load()

	eng, err := newEngine(cfg.Engine)
	if err != nil {
		return err
	}

	ctrl := session.NewController(mgr, eng, session.Config{
		QualityPreference: cfg.Player.QualityPreference,
		PollInterval:      time.Duration(cfg.Player.PollIntervalMs) * time.Millisecond,
	})
	defer ctrl.Close()
	go ctrl.Run(ctx)

	queue := append([]track.Track{*seed}, suggestions...)
	mgr.SetQueue(queue, 0)

	return watchPlayback(mgr, ctrl)
}

// applyPlaybackFlags folds the play command's flags into the manager.
// Absent flags leave the persisted shuffle and repeat settings untouched.
func applyPlaybackFlags(mgr *player.Manager, shuffleOn bool, repeat string) {
	if shuffleOn && !mgr.Shuffle() {
		mgr.ToggleShuffle()
	}
	if repeat != "" {
		mgr.SetRepeat(player.RepeatMode(repeat))
	}
}

// watchPlayback blocks until playback finishes or a shutdown signal arrives,
// printing a progress line once a second.
func watchPlayback(mgr *player.Manager, ctrl *session.Controller) error {
	fmt.Println("Playing. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopping...")
			return nil
		case <-ticker.C:
			if t, ok := mgr.CurrentTrack(); ok && mgr.IsPlaying() {
				fmt.Printf("\r  %s - %s  [%s / %s]   ",
					truncate(t.Name, 40), truncate(t.PrimaryArtists, 25),
					formatClock(mgr.Position()), formatClock(mgr.Duration()))
				continue
			}
			if ctrl.State() == session.StateIdle && !mgr.IsPlaying() {
				fmt.Println("\nQueue finished")
				return nil
			}
		}
	}
}

func runRecent(store storage.Store, clear bool) error {
	hist := search.NewHistory(store)
	hist.Load()

	if clear {
		hist.Clear()
		fmt.Println("Search history cleared")
		return nil
	}

	queries := hist.Recent()
	if len(queries) == 0 {
		fmt.Println("No recent searches")
		return nil
	}
	for i, q := range queries {
		fmt.Printf("  %d. %s\n", i+1, q)
	}
	return nil
}

func runFavoritesList(store storage.Store) error {
	favs := favorites.NewSet(store)
	favs.Load()

	tracks := favs.All()
	if len(tracks) == 0 {
		fmt.Println("No favorites yet")
		return nil
	}
	for i, t := range tracks {
		fmt.Printf("  %2d. %-40s %-25s [%s]\n",
			i+1, truncate(t.Name, 40), truncate(t.PrimaryArtists, 25), t.ID)
	}
	return nil
}

func runFavoritesAdd(cfg *config.Config, store storage.Store, songID string) error {
	client, err := newCatalogClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t, err := client.GetSong(ctx, songID)
	if err != nil {
		return errors.Wrapf(err, "failed to look up song %q", songID)
	}

	favs := favorites.NewSet(store)
	favs.Load()
	favs.Add(*t)

	fmt.Printf("Added to favorites: %s - %s\n", t.Name, t.PrimaryArtists)
	return nil
}

func runFavoritesRemove(store storage.Store, songID string) error {
	favs := favorites.NewSet(store)
	favs.Load()

	if !favs.Contains(songID) {
		return errors.Newf("song %q is not in favorites", songID)
	}
	favs.Remove(songID)
	fmt.Println("Removed from favorites")
	return nil
}

func runPlaylistList(store storage.Store) error {
	mgr := playlists.NewManager(store)
	mgr.Load()

	all := mgr.All()
	if len(all) == 0 {
		fmt.Println("No playlists yet")
		return nil
	}
	for _, p := range all {
		created := time.UnixMilli(p.CreatedAt).Format("2006-01-02")
		fmt.Printf("  %s  %-30s %3d songs  (created %s)\n", p.ID, truncate(p.Name, 30), len(p.Songs), created)
	}
	return nil
}

func runPlaylistCreate(store storage.Store, name string) error {
	mgr := playlists.NewManager(store)
	mgr.Load()

	id := mgr.Create(name)
	fmt.Printf("Created playlist %q with ID %s\n", name, id)
	return nil
}

func runPlaylistAdd(cfg *config.Config, store storage.Store, playlistID, songID string) error {
	mgr := playlists.NewManager(store)
	mgr.Load()

	if _, ok := mgr.Get(playlistID); !ok {
		return errors.Newf("playlist %q not found", playlistID)
	}

	client, err := newCatalogClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t, err := client.GetSong(ctx, songID)
	if err != nil {
		return errors.Wrapf(err, "failed to look up song %q", songID)
	}

	mgr.AddSong(playlistID, *t)
	fmt.Printf("Added %s to playlist\n", t.Name)
	return nil
}

func runPlaylistRemove(store storage.Store, playlistID string) error {
	mgr := playlists.NewManager(store)
	mgr.Load()

	if _, ok := mgr.Get(playlistID); !ok {
		return errors.Newf("playlist %q not found", playlistID)
	}
	mgr.Remove(playlistID)
	fmt.Println("Playlist deleted")
	return nil
}

func runTheme(store storage.Store, toggle bool) error {
	pref := theme.NewPreference(store)
	pref.Load()

	if toggle {
		fmt.Printf("Theme is now %s\n", pref.Toggle())
		return nil
	}
	fmt.Printf("Theme: %s\n", pref.Mode())
	return nil
}

// formatClock renders seconds as m:ss.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// truncate shortens s to max runes, ending in an ellipsis. Track names are
// routinely non-ASCII, so counting bytes would split runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
