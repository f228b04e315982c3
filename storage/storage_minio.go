package storage

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"

	"dentalscreen-api/entities"
	"dentalscreen-api/utils"

	"github.com/minio/minio-go/v7"
)

type MinIOStorage struct {
	minioClient *minio.Client
	bucketName  string
}

func NewMinIOStorage(minioClient *minio.Client, bucketName string) *MinIOStorage {
	return &MinIOStorage{
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

func (storage *MinIOStorage) MakeBucket() error {
	ctx := context.Background()
	err := storage.minioClient.MakeBucket(ctx, storage.bucketName, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := storage.minioClient.BucketExists(ctx, storage.bucketName)
		if errBucketExists == nil && exists {
			utils.LogInfo("We already own %s", storage.bucketName)
			return nil
		}
		return err
	}
	utils.LogInfo("Successfully created %s", storage.bucketName)
	return nil
}

func (storage *MinIOStorage) Store(kind, name string, data []byte) (string, error) {
	if !IsValidKind(kind) {
		return "", fmt.Errorf("unknown storage kind: %s", kind)
	}

	ctx := context.Background()
	ref := MakeRef(kind, name)

	info, err := storage.minioClient.PutObject(ctx, storage.bucketName, ref,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeForKind(kind)})
	if err != nil {
		return "", &entities.StorageError{Op: "store", Key: ref, Err: err}
	}

	utils.LogInfo("Successfully uploaded %s of size %d", ref, info.Size)
	return ref, nil
}

func (storage *MinIOStorage) Load(ref string) ([]byte, error) {
	ctx := context.Background()
	object, err := storage.minioClient.GetObject(ctx, storage.bucketName, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, &entities.StorageError{Op: "load", Key: ref, Err: err}
	}
	defer object.Close()

	data, err := ioutil.ReadAll(object)
	if err != nil {
		return nil, &entities.StorageError{Op: "load", Key: ref, Err: err}
	}
	return data, nil
}

func (storage *MinIOStorage) Exists(ref string) (bool, error) {
	ctx := context.Background()
	_, err := storage.minioClient.StatObject(ctx, storage.bucketName, ref, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, &entities.StorageError{Op: "exists", Key: ref, Err: err}
	}
	return true, nil
}
