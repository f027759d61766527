package s3client

import (
	"text2phenotype.com/anneval/logger"
	"bytes"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Client reads corpus files from and writes reports to one bucket. The AWS
// session is owned by a goroutine that swaps it for a fresh one whenever a
// call reports a failure.
type Client struct {
	holder     *sessionHolder
	bucketName string
	env        Config
}

type sessionHolder struct {
	curr      *session.Session
	requestCh <-chan *session.Session
	errorCh   chan<- error
	closeCh   chan<- struct{}
}

type Config struct {
	BucketName  string `envconfig:"MDL_COMN_STORAGE_CONTAINER_NAME" required:"true"`
	Env         string `envconfig:"ANNEVAL_ENV" default:"prod"`
	Region      string `envconfig:"MDL_COMN_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"MDL_COMN_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"MDL_COMN_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"MDL_COMN_AWS_ACCESS_KEY" default:""`
}

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

func New() (*Client, error) {
	var env Config
	if err := envconfig.Process("", &env); err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	return NewWithConfig(env)
}

func NewWithConfig(env Config) (*Client, error) {
	sessionCh := make(chan *session.Session)
	errorCh := make(chan error)
	closeCh := make(chan struct{}, 1)

	client := Client{
		bucketName: env.BucketName,
		env:        env,
		holder: &sessionHolder{
			requestCh: sessionCh,
			errorCh:   errorCh,
			closeCh:   closeCh,
		},
	}
	if err := client.acquireNewSession(); err != nil {
		return nil, err
	}
	go keepSessionRefreshed(&client, sessionCh, errorCh, closeCh)
	return &client, nil
}

func (client *Client) Upload(data []byte, key string) error {
	return client.withSession(func(sess *session.Session) error {
		uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: client.sdkLogger(key)}))
		client.keyLogger(key).Debug().Int("bytes", len(data)).Msg("Uploading object")
		_, err := uploader.Upload(&s3manager.UploadInput{
			Bucket: aws.String(client.bucketName),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		return err
	})
}

func (client *Client) Download(key string) ([]byte, error) {
	var result []byte
	err := client.withSession(func(sess *session.Session) error {
		downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: client.sdkLogger(key)}))
		buf := aws.NewWriteAtBuffer([]byte{})
		size, err := downloader.Download(buf, &s3.GetObjectInput{
			Bucket: aws.String(client.bucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			client.keyLogger(key).Error().Err(err).Msg("Failed to download object")
			return err
		}
		client.keyLogger(key).Debug().Msgf("Downloaded %v bytes", size)
		result = buf.Bytes()
		return nil
	})
	return result, err
}

// List returns every key under prefix.
func (client *Client) List(prefix string) ([]string, error) {
	var keys []string
	err := client.withSession(func(sess *session.Session) error {
		keys = keys[:0]
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(client.bucketName),
			Prefix: aws.String(prefix),
		}
		return s3.New(sess).ListObjectsV2Pages(input, func(page *s3.ListObjectsV2Output, _ bool) bool {
			for _, object := range page.Contents {
				keys = append(keys, aws.StringValue(object.Key))
			}
			return true
		})
	})
	return keys, err
}

func (client *Client) Close() {
	client.holder.closeCh <- struct{}{}
}

// withSession runs call once, and once more on a refreshed session if the
// first attempt failed.
func (client *Client) withSession(call func(sess *session.Session) error) error {
	sess, err := client.session()
	if err != nil {
		return err
	}
	if err = call(sess); err == nil {
		return nil
	}
	sess, err = client.tryRefreshingSession(err)
	if err != nil {
		return err
	}
	return call(sess)
}

func (client *Client) keyLogger(key string) *zerolog.Logger {
	keyLogger := clientLogger.With().Str("key", key).Str("bucket", client.bucketName).Logger()
	return &keyLogger
}

func (client *Client) sdkLogger(key string) *s3Logger {
	return &s3Logger{sdkLogger.With().Str("key", key).Str("bucket", client.bucketName).Logger()}
}

func keepSessionRefreshed(client *Client, sessionCh chan<- *session.Session, errorCh <-chan error, closeCh <-chan struct{}) {
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
		return nil, errors.New("failed to refresh session")
	}
	return sess, nil
}

func (client *Client) session() (*session.Session, error) {
	sess := <-client.holder.requestCh
	if sess == nil {
		return nil, errors.New("could not get session")
	}
	return sess, nil
}

func (client *Client) instanceConfig() *aws.Config {
	return aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4)
}

// envConfig uses static credentials from the environment; in dev a custom
// endpoint (localstack, minio) may replace AWS.
func (client *Client) envConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("credentials from environment: %w", err)
	}
	cfg := client.instanceConfig().WithCredentials(creds)
	if client.env.Env == "dev" && len(client.env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

func (client *Client) acquireNewSession() error {
	sess, err := session.NewSession(client.instanceConfig())
	if err == nil {
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err == nil {
			client.holder.curr = sess
			clientLogger.Info().Msg("S3 session successfully initialized using instance credentials")
			return nil
		}
	}
	clientLogger.Info().Err(err).Msg("Could not initialize S3 session using instance credentials, trying env credentials")

	cfg, err := client.envConfig()
	if err != nil {
		client.holder.curr = nil
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	sess, err = session.NewSession(cfg)
	if err != nil {
		client.holder.curr = nil
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return err
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		client.holder.curr = nil
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return errors.New("could not initialize S3 session")
	}
	client.holder.curr = sess
	clientLogger.Info().Msg("S3 session successfully initialized using env credentials")
	return nil
}

type s3Logger struct {
	logger zerolog.Logger
}

func (l *s3Logger) Log(v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprint(v...))
}
