package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/config"
	"portfolioParadise/internal/database"
	"portfolioParadise/internal/portfolio"
)

// admin 是运维工具：迁移表结构、写入模板目录、登记档案，以及在开发环境签发令牌。
func main() {
	var (
		migrate       = flag.Bool("migrate", false, "执行表结构迁移")
		seedTemplates = flag.Bool("seed-templates", false, "写入缺失的页面模板")
		register      = flag.String("register", "", "为账号登记档案：student 或 teacher")
		issueToken    = flag.String("token", "", "签发开发用访问令牌：student 或 teacher（需要私钥）")
		account       = flag.String("account", "", "身份提供方账号 UUID（-register/-token 使用，缺省时随机生成）")
		firstName     = flag.String("first-name", "", "名（-register 必填）")
		lastName      = flag.String("last-name", "", "姓（-register 必填）")
		publicKey     = flag.String("public-key", "", "JWT 公钥路径（可选，默认读 JWT_PUBLIC_KEY_PATH）")
		privateKey    = flag.String("private-key", "", "JWT 私钥路径（可选，默认读 JWT_PRIVATE_KEY_PATH）")
		tokenTTL      = flag.Duration("ttl", time.Hour, "令牌有效期")
		dbHost        = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort        = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName        = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser        = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass        = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode       = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	if !*migrate && !*seedTemplates && *register == "" && *issueToken == "" {
		flag.Usage()
		os.Exit(2)
	}

	accountID := uuid.New()
	if raw := strings.TrimSpace(*account); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Fatalf("parse --account: %v", err)
		}
		accountID = id
	}

	ctx := context.Background()

	if *migrate || *seedTemplates || *register != "" {
		dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
		if err != nil {
			log.Fatalf("load database config: %v", err)
		}
		db, err := database.InitDatabase(dbCfg)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		if *migrate {
			if err := database.Migrate(db); err != nil {
				log.Fatalf("auto migrate: %v", err)
			}
			fmt.Println("表结构迁移完成")
		}

		svc, err := portfolio.NewService(portfolio.Options{
			Store:  database.NewStore(db),
			Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		})
		if err != nil {
			log.Fatalf("init portfolio service: %v", err)
		}

		if *seedTemplates {
			n, err := svc.SeedTemplates(ctx)
			if err != nil {
				log.Fatalf("seed templates: %v", err)
			}
			fmt.Printf("已写入 %d 个页面模板\n", n)
		}

		if *register != "" {
			if err := registerProfile(ctx, svc, auth.Role(*register), accountID, *firstName, *lastName); err != nil {
				log.Fatalf("register %s: %v", *register, err)
			}
		}
	}

	if *issueToken != "" {
		token, err := signToken(*publicKey, *privateKey, *tokenTTL, accountID, auth.Role(*issueToken))
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Printf("账号: %s\n", accountID)
		fmt.Printf("访问令牌: %s\n", token)
	}
}

func registerProfile(ctx context.Context, svc *portfolio.Service, role auth.Role, accountID uuid.UUID, first, last string) error {
	profile := portfolio.Profile{AccountID: accountID, FirstName: first, LastName: last}
	switch role {
	case auth.RoleStudent:
		st, err := svc.RegisterStudent(ctx, profile)
		if err != nil {
			return err
		}
		fmt.Printf("已登记学生 %s（账号 %s），并创建预置分类\n", st.ID, accountID)
	case auth.RoleTeacher:
		t, err := svc.RegisterTeacher(ctx, profile)
		if err != nil {
			return err
		}
		fmt.Printf("已登记教师 %s（账号 %s）\n", t.ID, accountID)
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}

func signToken(publicPath, privatePath string, ttl time.Duration, accountID uuid.UUID, role auth.Role) (string, error) {
	if strings.TrimSpace(publicPath) == "" {
		publicPath = os.Getenv("JWT_PUBLIC_KEY_PATH")
	}
	if strings.TrimSpace(privatePath) == "" {
		privatePath = os.Getenv("JWT_PRIVATE_KEY_PATH")
	}
	if publicPath == "" || privatePath == "" {
		return "", errors.New("both public and private key paths are required")
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return "", fmt.Errorf("read public key: %w", err)
	}
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}
	svc, err := auth.NewAuthService(publicPEM, privatePEM, ttl)
	if err != nil {
		return "", err
	}
	return svc.IssueToken(accountID, role)
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("DB_NAME")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("DB_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("DB_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
		LogLevel: "warn",
	}, nil
}
