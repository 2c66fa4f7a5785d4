package config

import "testing"

func TestStorageConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{
			name:    "local with root",
			cfg:     StorageConfig{Kind: StorageKindLocal, Local: LocalStorageConfig{RootDir: "/var/lib/filedrop"}},
			wantErr: false,
		},
		{
			name:    "local without root",
			cfg:     StorageConfig{Kind: StorageKindLocal},
			wantErr: true,
		},
		{
			name: "s3 complete",
			cfg: StorageConfig{Kind: StorageKindS3, S3: S3StorageConfig{
				Region: "us-east-1", Bucket: "drops", AccessKey: "ak", SecretKey: "sk",
			}},
			wantErr: false,
		},
		{
			name:    "s3 missing credentials",
			cfg:     StorageConfig{Kind: StorageKindS3, S3: S3StorageConfig{Region: "us-east-1", Bucket: "drops"}},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			cfg:     StorageConfig{Kind: "ftp"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	t.Parallel()

	if !(AppConfig{Env: "Dev"}).IsDev() {
		t.Fatal("Dev should be dev")
	}
	if !(AppConfig{Env: "PROD"}).IsProd() {
		t.Fatal("PROD should be prod")
	}
	if (AppConfig{Env: "staging"}).IsProd() {
		t.Fatal("staging is not prod")
	}
}
