package storage

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Provider struct {
	api    *s3.S3
	bucket string
}

func NewS3Provider(region, bucket string) (*S3Provider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return &S3Provider{api: s3.New(sess), bucket: bucket}, nil
}

func (p *S3Provider) PresignPut(key, contentType string, ttl time.Duration) (string, error) {
	req, _ := p.api.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	return req.Presign(ttl)
}

func (p *S3Provider) PresignGet(key string, ttl time.Duration) (string, error) {
	req, _ := p.api.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	return req.Presign(ttl)
}
