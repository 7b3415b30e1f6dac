package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"text2phenotype.com/bioscope/logger"
)

var (
	errNoSession      = errors.New("s3: could not get session")
	errRefreshSession = errors.New("s3: failed to refresh session")
)

type EnvironmentConfig struct {
	BucketName string `envconfig:"BSC_STORAGE_BUCKET_NAME" required:"true"`
	// CorpusPrefix is the key prefix under which the corpus layout
	// (bioscope/, parsed/, genia/) is stored.
	CorpusPrefix string `envconfig:"BSC_STORAGE_CORPUS_PREFIX" default:""`
	Env          string `envconfig:"BSC_ENV" default:"prod"`
	Region       string `envconfig:"BSC_AWS_REGION_NAME" required:"true"`
	AwsEndpoint  string `envconfig:"BSC_AWS_ENDPOINT_URL" default:""`
	AccessKeyID  string `envconfig:"BSC_AWS_ACCESS_ID" default:""`
	AccessKey    string `envconfig:"BSC_AWS_ACCESS_KEY" default:""`
}

// Client is a bucket-scoped S3 client. Its session is owned by a refresher
// goroutine which replaces it whenever a request reports a failure.
type Client struct {
	env    EnvironmentConfig
	holder *sessionHolder
}

type sessionHolder struct {
	curr      *session.Session
	requestCh <-chan *session.Session
	errorCh   chan<- error
	closeCh   chan<- struct{}
}

var (
	clientLogger = logger.NewLogger("S3Client")
	sdkLogger    = logger.NewLogger("S3-SDK")
)

func New() (*Client, error) {
	errLogger := clientLogger.With().Caller().Logger()
	env, err := readEnvironment(&errLogger)
	if err != nil {
		return nil, err
	}

	sessionCh := make(chan *session.Session)
	errorCh := make(chan error)
	closeCh := make(chan struct{}, 1)
	client := &Client{
		env: env,
		holder: &sessionHolder{
			requestCh: sessionCh,
			errorCh:   errorCh,
			closeCh:   closeCh,
		},
	}
	if err := client.acquireNewSession(); err != nil {
		return nil, err
	}
	go client.keepSessionRefreshed(sessionCh, errorCh, closeCh)
	return client, nil
}

// Fetch reads a corpus file, resolved against the corpus prefix.
func (client *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	return client.Download(ctx, path.Join(client.env.CorpusPrefix, name))
}

func (client *Client) Download(ctx context.Context, key string) ([]byte, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(client.env.BucketName),
		Key:    aws.String(key),
	}
	var data []byte
	err := client.withSession(func(sess *session.Session) error {
		var err error
		data, err = download(ctx, sess, params)
		return err
	})
	return data, err
}

func (client *Client) Upload(ctx context.Context, data []byte, key string) (*s3manager.UploadOutput, error) {
	var output *s3manager.UploadOutput
	err := client.withSession(func(sess *session.Session) error {
		params := &s3manager.UploadInput{
			Bucket: aws.String(client.env.BucketName),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		}
		var err error
		output, err = upload(ctx, sess, params)
		return err
	})
	return output, err
}

func (client *Client) Close() {
	client.holder.closeCh <- struct{}{}
}

// withSession runs op once, and once more on a refreshed session if it fails.
func (client *Client) withSession(op func(*session.Session) error) error {
	sess, err := client.session()
	if err != nil {
		return err
	}
	if err = op(sess); err == nil {
		return nil
	}
	if sess, err = client.tryRefreshingSession(err); err != nil {
		return err
	}
	return op(sess)
}

func requestLoggers(bucket, key string) (zerolog.Logger, zerolog.Logger) {
	return clientLogger.With().Str("key", key).Str("bucket", bucket).Logger(),
		sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()
}

func upload(ctx context.Context, sess *session.Session, params *s3manager.UploadInput) (*s3manager.UploadOutput, error) {
	reqLogger, sdkLog := requestLoggers(*params.Bucket, *params.Key)
	uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: newSDKLogger(sdkLog)}))
	reqLogger.Debug().Msg("Uploading the file")
	return uploader.UploadWithContext(ctx, params)
}

func download(ctx context.Context, sess *session.Session, params *s3.GetObjectInput) ([]byte, error) {
	reqLogger, sdkLog := requestLoggers(*params.Bucket, *params.Key)
	downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: newSDKLogger(sdkLog)}))
	buf := aws.NewWriteAtBuffer([]byte{})

	reqLogger.Debug().Msg("Downloading file")
	size, err := downloader.DownloadWithContext(ctx, buf, params)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Failed to download file")
		return nil, fmt.Errorf("download %s: %w", *params.Key, err)
	}
	reqLogger.Debug().Int64("bytes", size).Msg("Downloaded file")
	return buf.Bytes(), nil
}

func (client *Client) keepSessionRefreshed(sessionCh chan<- *session.Session, errorCh <-chan error, closeCh <-chan struct{}) {
	for {
		select {
		case sessionCh <- client.holder.curr:
			continue
		default:
		}
		select {
		case sessionCh <- client.holder.curr:
		case err := <-errorCh:
			clientLogger.Error().Err(err).Msg("Caught error while using S3 session, trying to refresh it")
			if err = client.acquireNewSession(); err != nil {
				clientLogger.Error().Err(err).Msg("Caught error while refreshing S3 session")
				continue
			}
			clientLogger.Info().Msg("Successfully refreshed session")
		case <-closeCh:
			clientLogger.Info().Msg("Closing client")
			return
		}
	}
}

func (client *Client) tryRefreshingSession(err error) (*session.Session, error) {
	var sess *session.Session
	select {
	case client.holder.errorCh <- err:
		sess = <-client.holder.requestCh
	case sess = <-client.holder.requestCh:
	}
	if sess == nil {
		return nil, errRefreshSession
	}
	return sess, nil
}

func (client *Client) session() (*session.Session, error) {
	sess := <-client.holder.requestCh
	if sess == nil {
		return nil, errNoSession
	}
	return sess, nil
}

func (client *Client) instanceConfig() *aws.Config {
	return aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithLogLevel(aws.LogDebug)
}

func (client *Client) staticConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("credentials from environment: %w", err)
	}
	cfg := client.instanceConfig().WithCredentials(creds)
	if client.env.Env == "dev" && client.env.AwsEndpoint != "" {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

// acquireNewSession prefers instance credentials and falls back to the
// static credentials from the environment.
func (client *Client) acquireNewSession() error {
	client.holder.curr = nil
	if sess, err := verifiedSession(client.instanceConfig()); err == nil {
		client.holder.curr = sess
		clientLogger.Info().Msg("S3 session successfully initialized using EC2")
		return nil
	}
	clientLogger.Info().Msg("Could not initialize S3 session using EC2, trying env credentials")

	cfg, err := client.staticConfig()
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	sess, err := verifiedSession(cfg)
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	client.holder.curr = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
}

func verifiedSession(cfg *aws.Config) (*session.Session, error) {
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		return nil, err
	}
	return sess, nil
}

func readEnvironment(errLogger *zerolog.Logger) (EnvironmentConfig, error) {
	var config EnvironmentConfig
	if err := envconfig.Process("", &config); err != nil {
		errLogger.Err(err).Msg("Got error while processing environment")
		return config, err
	}
	return config, nil
}

type sdkLoggerAdapter struct {
	log zerolog.Logger
}

func newSDKLogger(log zerolog.Logger) aws.Logger {
	return &sdkLoggerAdapter{log}
}

func (a *sdkLoggerAdapter) Log(v ...interface{}) {
	a.log.Debug().Msg(fmt.Sprint(v...))
}
