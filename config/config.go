package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mondaydownloader/models"
)

// 既知のグループ名
const (
	GroupNPOPLA3        = "NPOP (LA3)/{SOBEYSMIF}"
	GroupNPOPLA6        = "NPOP (LA6)/{MIFLAOPS}"
	GroupTenderAtlantic = "New Tender - Sobeys MIF (Atlantic)"
	GroupTenderWest     = "New Tender - Sobeys MIF (West)"
	GroupTenderQuebec   = "New Tender - Sobeys MIF (Quebec)"
	GroupTenderOntario  = "New Tender - Sobeys MIF (Ontario)"
	GroupPepsi          = "Pepsi (Load Tender issued (********))"
)

// DefaultGroupFolders は既知グループとベースディレクトリ配下のフォルダの対応です
var DefaultGroupFolders = []models.GroupMapping{
	{Title: GroupNPOPLA3, Folder: "sobeys_old_template"},
	{Title: GroupNPOPLA6, Folder: "sobeys_old_template"},
	{Title: GroupTenderAtlantic, Folder: "sobeys_template-1"},
	{Title: GroupTenderWest, Folder: "sobeys_template-1"},
	{Title: GroupTenderQuebec, Folder: "sobeys_template-1"},
	{Title: GroupTenderOntario, Folder: "sobeys_template-1"},
	{Title: GroupPepsi, Folder: "pepsi"},
}

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// monday.com API設定
	MondayAPIURL     string
	MondayFileURL    string
	MondayAPIToken   string
	MondayAPIVersion string
	RequestTimeout   time.Duration

	// 対象ボード
	WorkspaceName string
	BoardName     string

	// カラムとステータス
	StatusColumnTitle string
	EmailColumnTitle  string
	TargetStatus      string
	NewStatus         string
	DaysToProcess     int

	// グループと保存先
	DownloadBaseDir string
	GroupsFile      string
	Groups          []models.GroupMapping

	// 並列処理設定
	GroupWorkers     int
	ItemWorkers      int
	MaxItemsPerGroup int

	// 出力
	ReportCSV string
	LogLevel  string
	LogFormat string
}

// groupsFile は GROUPS_FILE のYAML形式です
type groupsFile struct {
	BaseDir string `yaml:"base_dir"`
	Groups  []struct {
		Title  string `yaml:"title"`
		Folder string `yaml:"folder"`
	} `yaml:"groups"`
}

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		MondayAPIURL:      strings.TrimRight(getEnvWithDefault("MONDAY_API_URL", "https://api.monday.com/v2"), "/"),
		MondayFileURL:     strings.TrimRight(getEnvWithDefault("MONDAY_FILE_URL", "https://api.monday.com/v2/file"), "/"),
		MondayAPIToken:    os.Getenv("MONDAY_API_TOKEN"),
		MondayAPIVersion:  getEnvWithDefault("MONDAY_API_VERSION", "2024-10"),
		RequestTimeout:    getEnvAsDurationWithDefault("MONDAY_REQUEST_TIMEOUT", 60*time.Second),
		WorkspaceName:     os.Getenv("MONDAY_WORKSPACE"),
		BoardName:         os.Getenv("MONDAY_BOARD"),
		StatusColumnTitle: getEnvWithDefault("STATUS_COLUMN_TITLE", "Status"),
		EmailColumnTitle:  getEnvWithDefault("EMAIL_COLUMN_TITLE", "Email"),
		TargetStatus:      getEnvWithDefault("TARGET_STATUS", "Retry"),
		NewStatus:         getEnvWithDefault("NEW_STATUS", "In Queue"),
		DaysToProcess:     getEnvAsIntWithDefault("DAYS_TO_PROCESS", 1),
		DownloadBaseDir:   getEnvWithDefault("DOWNLOAD_BASE_DIR", "downloads"),
		GroupsFile:        os.Getenv("GROUPS_FILE"),
		GroupWorkers:      getEnvAsIntWithDefault("GROUP_WORKERS", 7),
		ItemWorkers:       getEnvAsIntWithDefault("ITEM_WORKERS", 10),
		MaxItemsPerGroup:  getEnvAsIntWithDefault("MAX_ITEMS_PER_GROUP", 0),
		ReportCSV:         os.Getenv("REPORT_CSV"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvWithDefault("LOG_FORMAT", "console"),
	}

	if err := config.LoadGroups(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadGroups は GroupsFile があればそこから、なければ既定の対応表からグループ設定を作ります
func (c *Config) LoadGroups() error {
	if c.GroupsFile == "" {
		c.Groups = DefaultGroups(c.DownloadBaseDir)
		return nil
	}

	groups, err := LoadGroupMapping(c.GroupsFile, c.DownloadBaseDir)
	if err != nil {
		return err
	}
	c.Groups = groups
	return nil
}

// DefaultGroups は既知の7グループを baseDir 配下に割り当てた対応表を返します
func DefaultGroups(baseDir string) []models.GroupMapping {
	groups := make([]models.GroupMapping, 0, len(DefaultGroupFolders))
	for _, g := range DefaultGroupFolders {
		groups = append(groups, models.GroupMapping{
			Title:  g.Title,
			Folder: filepath.Join(baseDir, g.Folder),
		})
	}
	return groups
}

// LoadGroupMapping はYAMLファイルからグループと保存先フォルダの対応を読み込みます
// 相対パスのフォルダは base_dir（未指定なら defaultBaseDir）に連結します
func LoadGroupMapping(path, defaultBaseDir string) ([]models.GroupMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("グループ設定ファイル読み込みエラー: %w", err)
	}

	var file groupsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("グループ設定ファイル解析エラー: %w", err)
	}

	baseDir := file.BaseDir
	if baseDir == "" {
		baseDir = defaultBaseDir
	}

	groups := make([]models.GroupMapping, 0, len(file.Groups))
	for i, g := range file.Groups {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			return nil, fmt.Errorf("グループ設定 %d 件目: title が空です", i+1)
		}
		folder := strings.TrimSpace(g.Folder)
		if folder != "" && !filepath.IsAbs(folder) {
			folder = filepath.Join(baseDir, folder)
		}
		groups = append(groups, models.GroupMapping{Title: title, Folder: folder})
	}

	return groups, nil
}

// FolderFor はグループの保存先フォルダを返します。設定がなければ false です
func (c *Config) FolderFor(groupTitle string) (string, bool) {
	for _, g := range c.Groups {
		if g.Title == groupTitle && g.Folder != "" {
			return g.Folder, true
		}
	}
	return "", false
}

// GroupTitles は設定されたグループ名を順番どおりに返します
func (c *Config) GroupTitles() []string {
	titles := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		titles = append(titles, g.Title)
	}
	return titles
}

// Validate は必須設定が揃っているかを確認します
func (c *Config) Validate() error {
	var errs []error
	if c.MondayAPIToken == "" {
		errs = append(errs, errors.New("MONDAY_API_TOKEN が設定されていません"))
	}
	if c.BoardName == "" {
		errs = append(errs, errors.New("MONDAY_BOARD が設定されていません"))
	}
	if c.GroupWorkers < 1 {
		errs = append(errs, fmt.Errorf("GROUP_WORKERS は1以上が必要です: %d", c.GroupWorkers))
	}
	if c.ItemWorkers < 1 {
		errs = append(errs, fmt.Errorf("ITEM_WORKERS は1以上が必要です: %d", c.ItemWorkers))
	}
	if c.DaysToProcess < 0 {
		errs = append(errs, fmt.Errorf("DAYS_TO_PROCESS は0以上が必要です: %d", c.DaysToProcess))
	}
	return errors.Join(errs...)
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// デフォルト値付きで環境変数を時間として取得（"30s" 形式または秒数）
func getEnvAsDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}
